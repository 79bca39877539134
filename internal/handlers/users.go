package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/types"
)

// UserHandler serves account routes other than login and registration.
type UserHandler struct {
	users *services.UserService
	guard *Guard
}

// UserRouter registers user routes. POST / registers a new account and
// needs no token.
func UserRouter(r chi.Router, api *API) {
	h := &UserHandler{users: api.Services.Users, guard: api.Guard}
	limit := api.Limit
	if limit == nil {
		limit = passthrough
	}

	r.With(limit).Post("/", api.Auth.Register)

	r.Group(func(r chi.Router) {
		r.Use(api.Auth.RequireAuth)

		r.With(api.Guard.RequireModerator).Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/balance", h.Balance)
			r.Get("/submissions", h.Submissions)
			r.Get("/purchases", h.Purchases)
			r.With(api.Guard.RequireModerator).Post("/freeze", h.Freeze)
			r.With(api.Guard.RequireModerator).Post("/unfreeze", h.Unfreeze)
		})
	})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.User{types.KindUser.String(): users})
}

// target resolves the {id} user and checks the actor against it.
func (h *UserHandler) target(w http.ResponseWriter, r *http.Request, adminOnly bool) (actor, id int64, ok bool) {
	if actor, ok = actorID(w, r); !ok {
		return 0, 0, false
	}
	if id, ok = pathID(w, r, "id"); !ok {
		return 0, 0, false
	}
	if adminOnly {
		ok = h.guard.OwnerOrAdmin(w, r, actor, types.KindUser, id)
	} else {
		ok = h.guard.OwnerOrModerator(w, r, actor, types.KindUser, id)
	}
	return actor, id, ok
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.target(w, r, false)
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r, true)
	if !ok {
		return
	}
	var p types.UserPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	updated, err := h.users.Update(r.Context(), actor, id, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResourceResponse{Message: "users record updated", Resource: updated})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r, true)
	if !ok {
		return
	}
	if _, err := h.users.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgResourceDeleted})
}

func (h *UserHandler) Balance(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.target(w, r, false)
	if !ok {
		return
	}
	balance, err := h.users.Balance(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"points_balance": balance})
}

func (h *UserHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.target(w, r, false)
	if !ok {
		return
	}
	subs, err := h.users.Submissions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.Submission{"submissions": subs})
}

func (h *UserHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.target(w, r, false)
	if !ok {
		return
	}
	purchases, err := h.users.Purchases(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.Purchase{"purchases": purchases})
}

func (h *UserHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, true)
}

func (h *UserHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, false)
}

func (h *UserHandler) setFrozen(w http.ResponseWriter, r *http.Request, frozen bool) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updated, err := h.users.SetFrozen(r.Context(), actor, id, frozen)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResourceResponse{Message: "users record updated", Resource: updated})
}
