package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

// Insert persists rec through its repository without an acting user.
func Insert[T store.Record](t *testing.T, s *store.Store, rec T) T {
	t.Helper()
	var created T
	err := s.WithTx(context.Background(), func(tx *store.Tx) error {
		var err error
		created, err = store.NewRepository[T](s).Create(context.Background(), tx, nil, rec)
		return err
	})
	if err != nil {
		t.Fatalf("insert %s: %v", rec.Kind(), err)
	}
	return created
}

// User builds a valid adult user. The password hash is a placeholder.
func User(name string) types.User {
	return types.User{
		Username:     name,
		PasswordHash: "not-a-real-hash",
		Email:        fmt.Sprintf("%s@example.com", name),
		DateOfBirth:  types.Date(time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// CreateUser inserts User(name).
func CreateUser(t *testing.T, s *store.Store, name string) types.User {
	t.Helper()
	return Insert(t, s, User(name))
}

// CreateStaff inserts a user holding the given role.
func CreateStaff(t *testing.T, s *store.Store, name string, role types.StaffRole) types.User {
	t.Helper()
	u := CreateUser(t, s, name)
	Insert(t, s, types.Staff{UserID: u.ID, Role: role})
	return u
}

func CreateBin(t *testing.T, s *store.Store, lat, lon float64, whitelist bool) types.Bin {
	t.Helper()
	return Insert(t, s, types.Bin{Latitude: lat, Longitude: lon, Whitelist: whitelist, Name: "bin"})
}

func CreateRecyclable(t *testing.T, s *store.Store, points int64) types.Recyclable {
	t.Helper()
	return Insert(t, s, types.Recyclable{Type: "bottle", PointsValue: points})
}

func CreateReward(t *testing.T, s *store.Store, price int64) types.Reward {
	t.Helper()
	return Insert(t, s, types.Reward{Title: "reward", Price: price})
}

func CreateSubmission(t *testing.T, s *store.Store, userID, binID, recyclableID int64, status types.SubmissionStatus) types.Submission {
	t.Helper()
	return Insert(t, s, types.Submission{
		UserID:       userID,
		BinID:        binID,
		RecyclableID: recyclableID,
		Latitude:     1,
		Longitude:    1,
		Status:       status,
	})
}

func CreatePurchase(t *testing.T, s *store.Store, userID, rewardID, quantity int64) types.Purchase {
	t.Helper()
	return Insert(t, s, types.Purchase{UserID: userID, RewardID: rewardID, Quantity: quantity})
}

func Allow(t *testing.T, s *store.Store, binID, recyclableID int64) types.AllowedRecyclable {
	t.Helper()
	return Insert(t, s, types.AllowedRecyclable{BinID: binID, RecyclableID: recyclableID})
}
