package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// BinRouter registers bin routes. Reads are public.
func BinRouter(r chi.Router, api *API) {
	h := newResourceHandler[types.Bin, types.BinPatch](api.Services.Bins.CRUDService)
	h.required = func(p types.BinPatch) error {
		return requireFields(present("latitude", p.Latitude), present("longitude", p.Longitude))
	}
	bins := &binHandler{bins: api.Services.Bins, images: api.images()}
	h.delete = deleteWithImage(api.Services.Bins.CRUDService, bins.images, types.KindBin)
	admin := chi.Chain(api.Auth.RequireAuth, api.Guard.RequireAdmin)

	r.Get("/", h.List)
	r.With(admin...).Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(admin...).Patch("/", h.Update)
		r.With(admin...).Delete("/", h.Delete)

		r.Get("/whitelist", bins.Whitelist)
		r.With(admin...).Post("/whitelist", bins.Allow)
		r.With(admin...).Delete("/whitelist/{recyclableID}", bins.Disallow)

		r.Get("/image", bins.DownloadImage)
		r.With(admin...).Post("/image", bins.UploadImage)
	})
}

type binHandler struct {
	bins   *services.BinService
	images imageHandler
}

// WhitelistResponse lists the recyclables a whitelisted bin accepts.
type WhitelistResponse struct {
	Whitelist   bool               `json:"whitelist"`
	Recyclables []types.Recyclable `json:"recyclables"`
}

// NoWhitelistResponse is returned for bins that accept any recyclable.
type NoWhitelistResponse struct {
	Whitelist bool   `json:"whitelist"`
	Message   string `json:"message"`
}

func (h *binHandler) Whitelist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.bins.Whitelist(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !list.Enabled {
		writeJSON(w, http.StatusOK, NoWhitelistResponse{Message: fmt.Sprintf("Bin %d does not have a whitelist", id)})
		return
	}
	recyclables := list.Recyclables
	if recyclables == nil {
		recyclables = []types.Recyclable{}
	}
	writeJSON(w, http.StatusOK, WhitelistResponse{Whitelist: true, Recyclables: recyclables})
}

// AllowRequest names the recyclable to add to a bin's whitelist.
type AllowRequest struct {
	RecyclableID int64 `json:"recyclable_id"`
}

func (h *binHandler) Allow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	binID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AllowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RecyclableID < 1 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidData, Message: "recyclable_id is required"})
		return
	}
	created, err := h.bins.Allow(r.Context(), actor, binID, req.RecyclableID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ResourceResponse{Message: msgResourceCreated, Resource: created})
}

func (h *binHandler) Disallow(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	binID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	recyclableID, ok := pathID(w, r, "recyclableID")
	if !ok {
		return
	}
	if _, err := h.bins.Disallow(r.Context(), actor, binID, recyclableID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgResourceDeleted})
}

func (h *binHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.bins.Get(r.Context(), store.ByID(id)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.images.upload(w, r, types.KindBin, id)
}

func (h *binHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.images.download(w, r, types.KindBin, id)
}

// RecyclableRouter registers recyclable routes. Reads are public.
func RecyclableRouter(r chi.Router, api *API) {
	h := newResourceHandler[types.Recyclable, types.RecyclablePatch](api.Services.Recyclables)
	h.required = func(p types.RecyclablePatch) error {
		return requireFields(present("type", p.Type), present("points_value", p.PointsValue))
	}
	admin := chi.Chain(api.Auth.RequireAuth, api.Guard.RequireAdmin)

	r.Get("/", h.List)
	r.With(admin...).Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(admin...).Patch("/", h.Update)
		r.With(admin...).Delete("/", h.Delete)
	})
}

// RewardRouter registers reward routes. Reads and images are public.
func RewardRouter(r chi.Router, api *API) {
	h := newResourceHandler[types.Reward, types.RewardPatch](api.Services.Rewards)
	h.required = func(p types.RewardPatch) error {
		return requireFields(present("title", p.Title), present("price", p.Price))
	}
	images := api.images()
	h.delete = deleteWithImage(api.Services.Rewards, images, types.KindReward)
	admin := chi.Chain(api.Auth.RequireAuth, api.Guard.RequireAdmin)

	upload := func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if _, err := api.Services.Rewards.Get(r.Context(), store.ByID(id)); err != nil {
			writeServiceError(w, r, err)
			return
		}
		images.upload(w, r, types.KindReward, id)
	}
	download := func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		images.download(w, r, types.KindReward, id)
	}

	r.Get("/", h.List)
	r.With(admin...).Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.With(admin...).Patch("/", h.Update)
		r.With(admin...).Delete("/", h.Delete)
		r.Get("/image", download)
		r.With(admin...).Post("/image", upload)
	})
}

// deleteWithImage deletes a record by id, then its stored image.
func deleteWithImage[T services.Resource](crud *services.CRUDService[T], images imageHandler, kind types.ResourceKind) func(context.Context, int64, int64) (T, error) {
	return func(ctx context.Context, actor, id int64) (T, error) {
		deleted, err := crud.Delete(ctx, &actor, store.ByID(id))
		if err == nil {
			images.remove(ctx, kind, id)
		}
		return deleted, err
	}
}
