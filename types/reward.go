package types

import "time"

// Reward is an item users can redeem points for.
type Reward struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (Reward) Kind() ResourceKind { return KindReward }
func (r Reward) RecordID() int64 { return r.ID }

// Purchase records a redemption. Points are never stored as deducted;
// the balance subtracts quantity * price on every read.
type Purchase struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	RewardID  int64     `json:"reward_id" db:"reward_id"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Purchase) Kind() ResourceKind { return KindPurchase }
func (p Purchase) RecordID() int64 { return p.ID }
