package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// SubmissionHandler serves the submission routes that go beyond plain CRUD.
type SubmissionHandler struct {
	submissions *services.SubmissionService
	guard       *Guard
	images      imageHandler
}

// SubmissionRouter registers submission routes. Every route needs a token.
func SubmissionRouter(r chi.Router, api *API) {
	subs := api.Services.Submissions
	h := &SubmissionHandler{submissions: subs, guard: api.Guard, images: api.images()}

	crud := newResourceHandler[types.Submission, types.SubmissionPatch](subs.CRUDService)
	crud.update = subs.Update
	crud.delete = subs.Delete

	r.Use(api.Auth.RequireAuth)
	r.Post("/", h.Create)
	r.With(api.Guard.RequireModerator).Get("/", crud.List)
	r.Route("/{id}", func(r chi.Router) {
		r.With(api.Guard.RequireModerator).Get("/", crud.Get)
		r.With(api.Guard.RequireModerator).Patch("/", crud.Update)
		r.With(h.ownerOrModerator).Delete("/", crud.Delete)
		r.With(h.ownerOrModerator).Get("/image", h.DownloadImage)
		r.Post("/image", h.UploadImage)
	})
}

// Create records a hand-in for the user named in the body, who must be
// the caller unless the caller is an admin.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	var req services.NewSubmission
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidData, Message: "user_id is required"})
		return
	}
	if !h.guard.OwnerOrAdmin(w, r, actor, types.KindUser, req.UserID) {
		return
	}

	created, err := h.submissions.Create(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ResourceResponse{Message: msgResourceCreated, Resource: created})
}

func (h *SubmissionHandler) ownerOrModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if !h.guard.OwnerOrModerator(w, r, actor, types.KindSubmission, id) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UploadImage attaches the photo of a submission. Each submission gets one.
func (h *SubmissionHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.guard.OwnerOrAdmin(w, r, actor, types.KindSubmission, id) {
		return
	}
	if _, err := h.submissions.Get(r.Context(), store.ByID(id)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.images.upload(w, r, types.KindSubmission, id)
}

func (h *SubmissionHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.images.download(w, r, types.KindSubmission, id)
}
