package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/binpoints/apiserver/internal/access"
	"github.com/binpoints/apiserver/types"
)

// Guard turns access predicates into middleware and inline checks. Every
// method expects requireAuth to have run first.
type Guard struct {
	evaluator *access.Evaluator
}

func NewGuard(evaluator *access.Evaluator) *Guard {
	return &Guard{evaluator: evaluator}
}

// RequireModerator lets staff of any role through.
func (g *Guard) RequireModerator(next http.Handler) http.Handler {
	return g.requireLevel(g.evaluator.HasModeratorAccess, next)
}

// RequireAdmin lets only admins through.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.requireLevel(g.evaluator.HasAdminAccess, next)
}

func (g *Guard) requireLevel(check func(context.Context, int64) (bool, error), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorID(w, r)
		if !ok {
			return
		}
		allowed, err := check(r.Context(), actor)
		if !g.allow(w, r, allowed, err) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerOrModerator checks that the actor owns the resource or is staff.
// It writes the rejection and returns false when access is denied.
func (g *Guard) OwnerOrModerator(w http.ResponseWriter, r *http.Request, actor int64, kind types.ResourceKind, id int64) bool {
	allowed, err := g.evaluator.IsOwnerOrModerator(r.Context(), actor, kind, id)
	return g.allow(w, r, allowed, err)
}

// OwnerOrAdmin checks that the actor owns the resource or is an admin.
func (g *Guard) OwnerOrAdmin(w http.ResponseWriter, r *http.Request, actor int64, kind types.ResourceKind, id int64) bool {
	allowed, err := g.evaluator.IsOwnerOrAdmin(r.Context(), actor, kind, id)
	return g.allow(w, r, allowed, err)
}

func (g *Guard) allow(w http.ResponseWriter, r *http.Request, allowed bool, err error) bool {
	if err != nil {
		slog.ErrorContext(r.Context(), "access check failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Unexpected server error")
		return false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, msgUnauthorised)
		return false
	}
	return true
}

// actorID returns the authenticated user, writing a 401 when absent.
func actorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return 0, false
	}
	return id, true
}
