package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/binpoints/apiserver/types"
)

// PointsEarned sums the points of the user's confirmed submissions.
func PointsEarned(ctx context.Context, q Querier, userID int64) (int64, error) {
	query := q.Rebind(`
		SELECT COALESCE(SUM(r.points_value), 0)
		FROM submissions s
		JOIN recyclables r ON r.id = s.recyclable_id
		WHERE s.user_id = ? AND s.status = ?`)
	var total int64
	if err := sqlx.GetContext(ctx, q, &total, query, userID, types.StatusConfirmed); err != nil {
		return 0, classify(err)
	}
	return total, nil
}

// PointsSpent sums quantity * price over the user's purchases.
func PointsSpent(ctx context.Context, q Querier, userID int64) (int64, error) {
	query := q.Rebind(`
		SELECT COALESCE(SUM(p.quantity * w.price), 0)
		FROM purchases p
		JOIN rewards w ON w.id = p.reward_id
		WHERE p.user_id = ?`)
	var total int64
	if err := sqlx.GetContext(ctx, q, &total, query, userID); err != nil {
		return 0, classify(err)
	}
	return total, nil
}

// WhitelistedRecyclables returns the recyclables a bin accepts through
// allowed_recyclables, ordered by id.
func WhitelistedRecyclables(ctx context.Context, q Querier, binID int64) ([]types.Recyclable, error) {
	query := q.Rebind(`
		SELECT r.id, r.type, r.points_value, r.description, r.weight, r.created_at
		FROM recyclables r
		JOIN allowed_recyclables a ON a.recyclable_id = r.id
		WHERE a.bin_id = ?
		ORDER BY r.id`)
	recyclables := []types.Recyclable{}
	if err := sqlx.SelectContext(ctx, q, &recyclables, query, binID); err != nil {
		return nil, classify(err)
	}
	return recyclables, nil
}

// IsWhitelisted reports whether recyclableID is listed for binID.
func IsWhitelisted(ctx context.Context, q Querier, binID, recyclableID int64) (bool, error) {
	query := q.Rebind(`SELECT COUNT(1) FROM allowed_recyclables WHERE bin_id = ? AND recyclable_id = ?`)
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, query, binID, recyclableID); err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// AllowedRecyclableID finds the join row linking a bin and a recyclable.
func AllowedRecyclableID(ctx context.Context, q Querier, binID, recyclableID int64) (int64, error) {
	query := q.Rebind(`SELECT id FROM allowed_recyclables WHERE bin_id = ? AND recyclable_id = ?`)
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, binID, recyclableID); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// LockUser takes a row lock on the user so concurrent balance checks for the
// same user serialize. SQLite serializes writers on its own and only gets an
// existence check.
func LockUser(ctx context.Context, tx *Tx, userID int64) error {
	query := "SELECT id FROM users WHERE id = ?"
	if supportsRowLocks(tx) {
		query += " FOR UPDATE"
	}
	var id int64
	if err := tx.GetContext(ctx, &id, tx.Rebind(query), userID); err != nil {
		return classify(err)
	}
	return nil
}

// StaffRole returns the user's staff role. ok is false for non-staff users.
func (s *Store) StaffRole(ctx context.Context, userID int64) (role types.StaffRole, ok bool, err error) {
	query := s.db.Rebind("SELECT role FROM staff WHERE user_id = ?")
	if err := s.db.GetContext(ctx, &role, query, userID); err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return role, true, nil
}

// OwnerOf returns the user owning a resource. A user owns itself; kinds
// without a user_id column have no owner. found is false when the resource
// does not exist or has no owner.
func (s *Store) OwnerOf(ctx context.Context, kind types.ResourceKind, id int64) (ownerID int64, found bool, err error) {
	var query string
	switch kind {
	case types.KindUser:
		query = "SELECT id FROM users WHERE id = ?"
	case types.KindStaff, types.KindMotivation, types.KindSubmission, types.KindPurchase:
		query = fmt.Sprintf("SELECT user_id FROM %s WHERE id = ?", kind)
	case types.KindBin, types.KindAllowedRecyclable, types.KindRecyclable, types.KindReward, types.KindActionLog:
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("%w: resource kind %d", types.ErrInvalidValue, int(kind))
	}

	if err := s.db.GetContext(ctx, &ownerID, s.db.Rebind(query), id); err != nil {
		if errors.Is(classify(err), ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ownerID, true, nil
}
