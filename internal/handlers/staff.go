package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// StaffRouter registers staff routes. Records are addressed by user_id.
func StaffRouter(r chi.Router, api *API) {
	h := newResourceHandler[types.Staff, types.StaffPatch](api.Services.Staff)
	h.param = "userID"
	h.key = store.ByUserID
	h.required = func(p types.StaffPatch) error {
		return requireFields(present("user_id", p.UserID), present("role", p.Role))
	}

	r.Use(api.Auth.RequireAuth)
	r.With(api.Guard.RequireAdmin).Post("/", h.Create)
	r.With(api.Guard.RequireModerator).Get("/", h.List)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(api.Guard.RequireModerator).Get("/", h.Get)
		r.With(api.Guard.RequireAdmin).Patch("/", h.Update)
		r.With(api.Guard.RequireAdmin).Delete("/", h.Delete)
	})
}

// MotivationRouter registers motivation routes. Records are addressed by
// user_id, and a user may write their own motivation.
func MotivationRouter(r chi.Router, api *API) {
	h := newResourceHandler[types.Motivation, types.MotivationPatch](api.Services.Motivations)
	h.param = "userID"
	h.key = store.ByUserID
	h.required = func(p types.MotivationPatch) error {
		return requireFields(present("user_id", p.UserID), present("motivation", p.Motivation))
	}

	create := func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}
		p, ok := h.decodeCreate(w, r)
		if !ok {
			return
		}
		if !api.Guard.OwnerOrAdmin(w, r, actor, types.KindUser, *p.UserID) {
			return
		}
		h.create(w, r, p)
	}

	r.Use(api.Auth.RequireAuth)
	r.Post("/", create)
	r.With(api.Guard.RequireModerator).Get("/", h.List)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(api.Guard.RequireModerator).Get("/", h.Get)
		r.With(api.Guard.RequireAdmin).Patch("/", h.Update)
		r.With(api.Guard.RequireAdmin).Delete("/", h.Delete)
	})
}
