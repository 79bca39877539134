package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/types"
)

// PurchaseRouter registers purchase routes. Every route needs a token.
func PurchaseRouter(r chi.Router, api *API) {
	purchases := api.Services.Purchases
	crud := newResourceHandler[types.Purchase, types.PurchasePatch](purchases.CRUDService)
	crud.update = purchases.Update
	crud.delete = purchases.Delete

	create := func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}
		var req services.NewPurchase
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.UserID < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidData, Message: "user_id is required"})
			return
		}
		if !api.Guard.OwnerOrAdmin(w, r, actor, types.KindUser, req.UserID) {
			return
		}

		created, err := purchases.Create(r.Context(), actor, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, ResourceResponse{Message: msgResourceCreated, Resource: created})
	}

	ownerOrModerator := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorID(w, r)
			if !ok {
				return
			}
			id, ok := pathID(w, r, "id")
			if !ok {
				return
			}
			if api.Guard.OwnerOrModerator(w, r, actor, types.KindPurchase, id) {
				next.ServeHTTP(w, r)
			}
		})
	}

	r.Use(api.Auth.RequireAuth)
	r.Post("/", create)
	r.With(api.Guard.RequireModerator).Get("/", crud.List)
	r.Route("/{id}", func(r chi.Router) {
		r.With(ownerOrModerator).Get("/", crud.Get)
		r.With(api.Guard.RequireAdmin).Patch("/", crud.Update)
		r.With(api.Guard.RequireAdmin).Delete("/", crud.Delete)
	})
}
