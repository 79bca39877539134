package services

import (
	"context"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// BalanceCalculator derives a user's spendable points on every call.
// Nothing is cached, so the answer always reflects committed state.
type BalanceCalculator struct {
	users *store.Repository[types.User]
}

func NewBalanceCalculator(s *store.Store) *BalanceCalculator {
	return &BalanceCalculator{users: store.NewRepository[types.User](s)}
}

// Balance returns points earned from confirmed submissions minus points spent
// on purchases. The result is not clamped at zero. Pass a *store.Tx as q to
// read inside a transaction.
func (b *BalanceCalculator) Balance(ctx context.Context, q store.Querier, userID int64) (int64, error) {
	exists, err := b.users.Exists(ctx, q, store.ByID(userID))
	if err != nil {
		return 0, translate(err, msgUserNotFound)
	}
	if !exists {
		return 0, NotFound(msgUserNotFound)
	}

	earned, err := store.PointsEarned(ctx, q, userID)
	if err != nil {
		return 0, translate(err, msgUserNotFound)
	}
	spent, err := store.PointsSpent(ctx, q, userID)
	if err != nil {
		return 0, translate(err, msgUserNotFound)
	}
	return earned - spent, nil
}
