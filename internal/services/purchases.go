package services

import (
	"context"
	"math"
	"math/bits"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const (
	msgPurchaseNotFound = "Purchase not found"
	msgRewardNotFound   = "Reward not found"
	msgFrozenPurchase   = "Your account is frozen and you cannot make new purchases"
	msgInsufficient     = "Insufficient points"
)

// NewPurchase is a redemption request. Quantity defaults to 1.
type NewPurchase struct {
	UserID   int64  `json:"user_id"`
	RewardID int64  `json:"reward_id"`
	Quantity *int64 `json:"quantity"`
}

// PurchaseService encapsulates reward redemption.
type PurchaseService struct {
	*CRUDService[types.Purchase]
	users   *UserService
	rewards *store.Repository[types.Reward]
	balance *BalanceCalculator
}

func NewPurchaseService(s *store.Store, users *UserService) *PurchaseService {
	return &PurchaseService{
		CRUDService: NewCRUDService[types.Purchase](s, msgPurchaseNotFound),
		users:       users,
		rewards:     store.NewRepository[types.Reward](s),
		balance:     NewBalanceCalculator(s),
	}
}

// Create redeems a reward. The buyer's row is locked before the balance is
// read, so two concurrent purchases by the same user cannot both spend the
// same points.
func (s *PurchaseService) Create(ctx context.Context, actor int64, req NewPurchase) (types.Purchase, error) {
	for _, id := range uniqueIDs(actor, req.UserID) {
		frozen, err := s.users.IsFrozen(ctx, id)
		if err != nil {
			return types.Purchase{}, err
		}
		if frozen {
			return types.Purchase{}, Forbidden(msgFrozenPurchase)
		}
	}

	purchase := types.Purchase{UserID: req.UserID, RewardID: req.RewardID, Quantity: 1}
	if req.Quantity != nil {
		purchase.Quantity = *req.Quantity
	}
	if err := purchase.Validate(); err != nil {
		return types.Purchase{}, translate(err, msgPurchaseNotFound)
	}

	var created types.Purchase
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := store.LockUser(ctx, tx, purchase.UserID); err != nil {
			return translate(err, msgUserNotFound)
		}

		reward, err := s.rewards.Get(ctx, tx, store.ByID(purchase.RewardID))
		if err != nil {
			return translate(err, msgRewardNotFound)
		}

		balance, err := s.balance.Balance(ctx, tx, purchase.UserID)
		if err != nil {
			return err
		}
		cost, ok := purchaseCost(reward.Price, purchase.Quantity)
		if !ok || cost > balance {
			return Forbidden(msgInsufficient)
		}

		created, err = s.repo.Create(ctx, tx, &actor, purchase)
		return err
	})
	return created, translate(err, msgPurchaseNotFound)
}

func (s *PurchaseService) Update(ctx context.Context, actor int64, id int64, patch types.PurchasePatch) (types.Purchase, error) {
	return s.CRUDService.Update(ctx, &actor, store.ByID(id), patch.Apply)
}

func (s *PurchaseService) Delete(ctx context.Context, actor int64, id int64) (types.Purchase, error) {
	return s.CRUDService.Delete(ctx, &actor, store.ByID(id))
}

// purchaseCost returns price*quantity. ok is false when either operand is
// negative or the product does not fit in an int64.
func purchaseCost(price, quantity int64) (cost int64, ok bool) {
	if price < 0 || quantity < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(price), uint64(quantity))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}
