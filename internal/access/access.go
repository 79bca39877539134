// Package access answers whether an actor may act on a resource.
//
// Every predicate is a read-only lookup; callers turn a false answer into a
// 403 before touching any state. Lookup failures are returned as errors and
// never count as access.
package access

import (
	"context"

	"github.com/binpoints/apiserver/types"
)

// Directory resolves the facts access decisions depend on.
// *store.Store satisfies it.
type Directory interface {
	// StaffRole returns the actor's staff role; ok is false for regular users.
	StaffRole(ctx context.Context, userID int64) (role types.StaffRole, ok bool, err error)

	// OwnerOf returns the user owning a resource; found is false when the
	// resource is missing or the kind has no owner.
	OwnerOf(ctx context.Context, kind types.ResourceKind, id int64) (ownerID int64, found bool, err error)
}

// Evaluator evaluates access predicates against a Directory.
type Evaluator struct {
	dir Directory
}

func NewEvaluator(dir Directory) *Evaluator {
	return &Evaluator{dir: dir}
}

// HasModeratorAccess is true for any staff member. Admins qualify.
func (e *Evaluator) HasModeratorAccess(ctx context.Context, actorID int64) (bool, error) {
	role, ok, err := e.dir.StaffRole(ctx, actorID)
	if err != nil || !ok {
		return false, err
	}
	switch role {
	case types.RoleModerator, types.RoleAdmin:
		return true, nil
	default:
		return false, nil
	}
}

// HasAdminAccess is true only for staff with the admin role.
func (e *Evaluator) HasAdminAccess(ctx context.Context, actorID int64) (bool, error) {
	role, ok, err := e.dir.StaffRole(ctx, actorID)
	if err != nil || !ok {
		return false, err
	}
	switch role {
	case types.RoleAdmin:
		return true, nil
	case types.RoleModerator:
		return false, nil
	default:
		return false, nil
	}
}

// IsOwner reports whether actorID owns the resource. A user owns itself.
func (e *Evaluator) IsOwner(ctx context.Context, actorID int64, kind types.ResourceKind, resourceID int64) (bool, error) {
	owner, found, err := e.dir.OwnerOf(ctx, kind, resourceID)
	if err != nil || !found {
		return false, err
	}
	return owner == actorID, nil
}

// IsOwnerOrModerator checks moderator access first, then ownership.
func (e *Evaluator) IsOwnerOrModerator(ctx context.Context, actorID int64, kind types.ResourceKind, resourceID int64) (bool, error) {
	ok, err := e.HasModeratorAccess(ctx, actorID)
	if err != nil || ok {
		return ok, err
	}
	return e.IsOwner(ctx, actorID, kind, resourceID)
}

// IsOwnerOrAdmin checks admin access first, then ownership.
func (e *Evaluator) IsOwnerOrAdmin(ctx context.Context, actorID int64, kind types.ResourceKind, resourceID int64) (bool, error) {
	ok, err := e.HasAdminAccess(ctx, actorID)
	if err != nil || ok {
		return ok, err
	}
	return e.IsOwner(ctx, actorID, kind, resourceID)
}

// Level is the highest access level an actor holds.
type Level int

const (
	LevelUser Level = iota
	LevelModerator
	LevelAdmin
)

func (l Level) String() string {
	switch l {
	case LevelUser:
		return "user"
	case LevelModerator:
		return "moderator"
	case LevelAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// LevelOf returns the actor's access level, as reported on login.
func (e *Evaluator) LevelOf(ctx context.Context, actorID int64) (Level, error) {
	role, ok, err := e.dir.StaffRole(ctx, actorID)
	if err != nil || !ok {
		return LevelUser, err
	}
	switch role {
	case types.RoleAdmin:
		return LevelAdmin, nil
	case types.RoleModerator:
		return LevelModerator, nil
	default:
		return LevelUser, nil
	}
}
