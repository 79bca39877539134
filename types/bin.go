package types

import "time"

// Bin is a physical recycling receptacle.
type Bin struct {
	ID        int64   `json:"id" db:"id"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`

	// Whitelist restricts the bin to the recyclables listed in
	// allowed_recyclables. When false any recyclable is accepted.
	Whitelist bool `json:"whitelist" db:"whitelist"`

	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (Bin) Kind() ResourceKind { return KindBin }
func (b Bin) RecordID() int64 { return b.ID }

// AllowedRecyclable joins a whitelisted bin to a recyclable it accepts.
type AllowedRecyclable struct {
	ID           int64 `json:"id" db:"id"`
	BinID        int64 `json:"bin_id" db:"bin_id"`
	RecyclableID int64 `json:"recyclable_id" db:"recyclable_id"`
}

func (AllowedRecyclable) Kind() ResourceKind { return KindAllowedRecyclable }
func (a AllowedRecyclable) RecordID() int64 { return a.ID }

// Recyclable is an item type users can hand in for points.
type Recyclable struct {
	ID          int64     `json:"id" db:"id"`
	Type        string    `json:"type" db:"type"`
	PointsValue int64     `json:"points_value" db:"points_value"`
	Description string    `json:"description" db:"description"`
	Weight      float64   `json:"weight" db:"weight"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (Recyclable) Kind() ResourceKind { return KindRecyclable }
func (r Recyclable) RecordID() int64 { return r.ID }
