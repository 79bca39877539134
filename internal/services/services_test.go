package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/services"
	"github.com/binpoints/apiserver/internal/storage"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/internal/testutil"
	"github.com/binpoints/apiserver/types"
)

var rules = config.RulesConfig{MaxBinDistanceMeters: 50, MinimumAge: 16, MaxUploadBytes: 10 << 20}

func newServices(t *testing.T) (*services.Services, *store.Store) {
	t.Helper()
	s := testutil.NewStore(t)
	return services.New(s, storage.NewStorage(storage.NewMemoryStorage()), rules), s
}

func requireKind(t *testing.T, err error, kind services.ErrorKind) *services.Error {
	t.Helper()
	require.Error(t, err)
	svcErr := services.AsError(err)
	require.Equal(t, kind, svcErr.Kind, "unexpected error: %v", err)
	return svcErr
}

func ptr[T any](v T) *T { return &v }

func TestBalance(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")

	balance, err := svc.Users.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, balance)

	bin := testutil.CreateBin(t, s, 1, 1, false)
	can := testutil.CreateRecyclable(t, s, 10)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, can.ID, types.StatusConfirmed)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, can.ID, types.StatusConfirmed)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, can.ID, types.StatusModeratorRequired)
	reward := testutil.CreateReward(t, s, 3)
	testutil.CreatePurchase(t, s, user.ID, reward.ID, 2)

	for i := 0; i < 2; i++ {
		balance, err = svc.Users.Balance(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, int64(14), balance)
	}

	_, err = svc.Users.Balance(ctx, user.ID+100)
	require.Equal(t, "User not found", requireKind(t, err, services.KindNotFound).Message)
}

func TestBalanceIsNotClamped(t *testing.T) {
	svc, s := newServices(t)
	user := testutil.CreateUser(t, s, "alice")
	reward := testutil.CreateReward(t, s, 5)
	testutil.CreatePurchase(t, s, user.ID, reward.ID, 1)

	balance, err := svc.Users.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(-5), balance)
}

func TestCreateSubmissionAtBin(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 5)

	sub, err := svc.Submissions.Create(ctx, user.ID, services.NewSubmission{
		RecyclableID: recyclable.ID, UserID: user.ID, BinID: bin.ID, Latitude: 1, Longitude: 1,
	})
	require.NoError(t, err)
	require.Equal(t, types.StatusNotConfirmed, sub.Status)
	require.Equal(t, user.ID, sub.UserID)
}

func TestCreateSubmissionRejections(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")
	open := testutil.CreateBin(t, s, 1, 1, false)
	restricted := testutil.CreateBin(t, s, 1, 1, true)
	bottle := testutil.CreateRecyclable(t, s, 5)
	can := testutil.CreateRecyclable(t, s, 5)
	testutil.Allow(t, s, restricted.ID, can.ID)

	for name, tc := range map[string]struct {
		req     services.NewSubmission
		kind    services.ErrorKind
		message string
	}{
		"too far": {
			req:     services.NewSubmission{RecyclableID: bottle.ID, UserID: user.ID, BinID: open.ID, Latitude: 11, Longitude: 11},
			kind:    services.KindForbidden,
			message: "Not within sufficient distance of specified bin",
		},
		"not whitelisted": {
			req:     services.NewSubmission{RecyclableID: bottle.ID, UserID: user.ID, BinID: restricted.ID, Latitude: 1, Longitude: 1},
			kind:    services.KindForbidden,
			message: "Recyclable not allowed for this bin",
		},
		"missing bin": {
			req:     services.NewSubmission{RecyclableID: bottle.ID, UserID: user.ID, BinID: 999, Latitude: 1, Longitude: 1},
			kind:    services.KindNotFound,
			message: "Bin not found",
		},
		"missing recyclable": {
			req:     services.NewSubmission{RecyclableID: 999, UserID: user.ID, BinID: open.ID, Latitude: 1, Longitude: 1},
			kind:    services.KindNotFound,
			message: "Recyclable not found",
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submissions.Create(ctx, user.ID, tc.req)
			require.Equal(t, tc.message, requireKind(t, err, tc.kind).Message)
		})
	}

	_, err := svc.Submissions.Create(ctx, user.ID, services.NewSubmission{
		RecyclableID: can.ID, UserID: user.ID, BinID: restricted.ID, Latitude: 1, Longitude: 1,
	})
	require.NoError(t, err)

	n, err := svc.Submissions.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSubmissionDistanceBoundaryIsInclusive(t *testing.T) {
	s := testutil.NewStore(t)
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 1)
	user := testutil.CreateUser(t, s, "alice")

	sub := types.Submission{RecyclableID: recyclable.ID, UserID: user.ID, BinID: bin.ID, Latitude: 1.0004, Longitude: 1}
	exact := 0.0004 * 6_371_000.0 * 3.141592653589793 / 180

	err := services.NewSubmissionValidator(s, exact+1e-6).Validate(context.Background(), s.DB(), sub)
	require.NoError(t, err)

	err = services.NewSubmissionValidator(s, exact-0.01).Validate(context.Background(), s.DB(), sub)
	requireKind(t, err, services.KindForbidden)
}

func TestFrozenAccountsCannotSubmitOrPurchase(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	mod := testutil.CreateStaff(t, s, "mod", types.RoleModerator)
	user := testutil.CreateUser(t, s, "alice")
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 100)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, recyclable.ID, types.StatusConfirmed)
	reward := testutil.CreateReward(t, s, 1)

	frozen, err := svc.Users.SetFrozen(ctx, mod.ID, user.ID, true)
	require.NoError(t, err)
	require.True(t, frozen.Frozen)

	_, err = svc.Submissions.Create(ctx, user.ID, services.NewSubmission{
		RecyclableID: recyclable.ID, UserID: user.ID, BinID: bin.ID, Latitude: 1, Longitude: 1,
	})
	require.Equal(t, "Your account is frozen and you cannot make new submissions",
		requireKind(t, err, services.KindForbidden).Message)

	_, err = svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID})
	require.Equal(t, "Your account is frozen and you cannot make new purchases",
		requireKind(t, err, services.KindForbidden).Message)

	_, err = svc.Users.SetFrozen(ctx, mod.ID, user.ID, false)
	require.NoError(t, err)
	_, err = svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID})
	require.NoError(t, err)
}

func TestStaffAccountsCannotBeFrozen(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	mod := testutil.CreateStaff(t, s, "mod", types.RoleModerator)
	other := testutil.CreateStaff(t, s, "mod2", types.RoleModerator)
	admin := testutil.CreateStaff(t, s, "admin", types.RoleAdmin)

	for _, target := range []int64{other.ID, admin.ID} {
		_, err := svc.Users.SetFrozen(ctx, mod.ID, target, true)
		require.Equal(t, "Freezing a staff account is not allowed", requireKind(t, err, services.KindForbidden).Message)
	}
}

func TestPurchase(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 10)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, recyclable.ID, types.StatusConfirmed)
	reward := testutil.CreateReward(t, s, 4)

	_, err := svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID, Quantity: ptr(int64(3))})
	require.Equal(t, "Insufficient points", requireKind(t, err, services.KindForbidden).Message)

	purchase, err := svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID, Quantity: ptr(int64(2))})
	require.NoError(t, err)
	require.Equal(t, int64(2), purchase.Quantity)

	balance, err := svc.Users.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), balance)

	_, err = svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: 999})
	require.Equal(t, "Reward not found", requireKind(t, err, services.KindNotFound).Message)

	_, err = svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID, Quantity: ptr(int64(0))})
	requireKind(t, err, services.KindInvalidData)

	purchases, err := svc.Users.Purchases(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
}

func TestPurchaseQuantityCannotWrapTheCost(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")
	reward := testutil.CreateReward(t, s, 4)

	for _, quantity := range []int64{1 << 62, types.MaxPurchaseQuantity + 1} {
		_, err := svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID, Quantity: ptr(quantity)})
		requireKind(t, err, services.KindInvalidData)
	}

	_, err := svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID, Quantity: ptr(int64(types.MaxPurchaseQuantity))})
	require.Equal(t, "Insufficient points", requireKind(t, err, services.KindForbidden).Message)

	purchases, err := svc.Users.Purchases(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, purchases)

	balance, err := svc.Users.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestConcurrentPurchasesCannotOverspend(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, s, "alice")
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 10)
	testutil.CreateSubmission(t, s, user.ID, bin.ID, recyclable.ID, types.StatusConfirmed)
	reward := testutil.CreateReward(t, s, 10)

	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := svc.Purchases.Create(ctx, user.ID, services.NewPurchase{UserID: user.ID, RewardID: reward.ID})
			results <- err
		}()
	}
	var succeeded int
	for i := 0; i < 4; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			requireKind(t, err, services.KindForbidden)
		}
	}
	require.Equal(t, 1, succeeded)

	balance, err := svc.Users.Balance(ctx, user.ID)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestSubmissionStatusIsTerminalOnceDecided(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	mod := testutil.CreateStaff(t, s, "mod", types.RoleModerator)
	user := testutil.CreateUser(t, s, "alice")
	bin := testutil.CreateBin(t, s, 1, 1, false)
	recyclable := testutil.CreateRecyclable(t, s, 10)
	sub := testutil.CreateSubmission(t, s, user.ID, bin.ID, recyclable.ID, types.StatusNotConfirmed)

	updated, err := svc.Submissions.Update(ctx, mod.ID, sub.ID, types.SubmissionPatch{Status: ptr(types.StatusConfirmed)})
	require.NoError(t, err)
	require.Equal(t, types.StatusConfirmed, updated.Status)

	_, err = svc.Submissions.Update(ctx, mod.ID, sub.ID, types.SubmissionPatch{Status: ptr(types.StatusDenied)})
	requireKind(t, err, services.KindInvalidData)

	_, err = svc.Submissions.Update(ctx, mod.ID, sub.ID+100, types.SubmissionPatch{Status: ptr(types.StatusDenied)})
	require.Equal(t, "Submission not found", requireKind(t, err, services.KindNotFound).Message)
}

func TestRegister(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	dob := types.Date(time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC))

	user, err := svc.Users.Register(ctx, services.RegisterRequest{
		Username: "alice", Password: "hunter22", Email: "alice@example.com", DateOfBirth: dob,
	})
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", user.PasswordHash)

	entries, err := store.NewActionLogRepository(s).ListFor(ctx, s.DB(), types.KindUser, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].UserID)

	_, err = svc.Users.Register(ctx, services.RegisterRequest{
		Username: "alice", Password: "pw", Email: "other@example.com", DateOfBirth: dob,
	})
	svcErr := requireKind(t, err, services.KindInvalidData)
	require.True(t, svcErr.Conflict)
	require.Equal(t, "This username is already taken", svcErr.Message)

	_, err = svc.Users.Register(ctx, services.RegisterRequest{
		Username: "bob", Password: "pw", Email: "alice@example.com", DateOfBirth: dob,
	})
	require.Equal(t, "This email address has already been used", requireKind(t, err, services.KindInvalidData).Message)

	young := types.Date(time.Now().AddDate(-10, 0, 0))
	_, err = svc.Users.Register(ctx, services.RegisterRequest{
		Username: "kid", Password: "pw", Email: "kid@example.com", DateOfBirth: young,
	})
	require.Equal(t, "You must be over the age of 16", requireKind(t, err, services.KindForbidden).Message)

	_, err = svc.Users.Register(ctx, services.RegisterRequest{Username: "carol", Password: "pw", DateOfBirth: dob})
	requireKind(t, err, services.KindInvalidData)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	_, err := svc.Users.Register(ctx, services.RegisterRequest{
		Username: "alice", Password: "hunter22", Email: "alice@example.com",
		DateOfBirth: types.Date(time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	user, err := svc.Users.Authenticate(ctx, services.LoginRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Username: "alice", Password: "wrong"})
	requireKind(t, err, services.KindFailedAuthentication)

	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Username: "nobody", Password: "hunter22"})
	requireKind(t, err, services.KindFailedAuthentication)

	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	requireKind(t, err, services.KindInvalidData)

	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Password: "hunter22"})
	requireKind(t, err, services.KindInvalidData)

	_, err = svc.Users.Update(ctx, user.ID, user.ID, types.UserPatch{Password: ptr("correct horse")})
	require.NoError(t, err)
	_, err = svc.Users.Authenticate(ctx, services.LoginRequest{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
}

func TestUpdateUserToTakenUsernameIsInvalid(t *testing.T) {
	svc, s := newServices(t)
	alice := testutil.CreateUser(t, s, "alice")
	testutil.CreateUser(t, s, "bob")

	_, err := svc.Users.Update(context.Background(), alice.ID, alice.ID, types.UserPatch{Username: ptr("bob")})
	requireKind(t, err, services.KindInvalidData)
}

func TestBinWhitelist(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	admin := testutil.CreateStaff(t, s, "admin", types.RoleAdmin)
	bin := testutil.CreateBin(t, s, 1, 1, true)
	recyclable := testutil.CreateRecyclable(t, s, 1)

	list, err := svc.Bins.Whitelist(ctx, bin.ID)
	require.NoError(t, err)
	require.True(t, list.Enabled)
	require.Empty(t, list.Recyclables)

	_, err = svc.Bins.Allow(ctx, admin.ID, bin.ID, recyclable.ID)
	require.NoError(t, err)
	_, err = svc.Bins.Allow(ctx, admin.ID, bin.ID, recyclable.ID)
	requireKind(t, err, services.KindInvalidData)
	_, err = svc.Bins.Allow(ctx, admin.ID, bin.ID, 999)
	requireKind(t, err, services.KindNotFound)

	list, err = svc.Bins.Whitelist(ctx, bin.ID)
	require.NoError(t, err)
	require.Len(t, list.Recyclables, 1)

	_, err = svc.Bins.Disallow(ctx, admin.ID, bin.ID, recyclable.ID)
	require.NoError(t, err)
	_, err = svc.Bins.Disallow(ctx, admin.ID, bin.ID, recyclable.ID)
	requireKind(t, err, services.KindNotFound)

	_, err = svc.Bins.Whitelist(ctx, 999)
	require.Equal(t, "Bin not found", requireKind(t, err, services.KindNotFound).Message)
}

func TestDeleteReferencedRecordIsInvalid(t *testing.T) {
	svc, s := newServices(t)
	ctx := context.Background()
	admin := testutil.CreateStaff(t, s, "admin", types.RoleAdmin)
	user := testutil.CreateUser(t, s, "alice")
	reward := testutil.CreateReward(t, s, 0)
	testutil.CreatePurchase(t, s, user.ID, reward.ID, 1)

	_, err := svc.Rewards.Delete(ctx, &admin.ID, store.ByID(reward.ID))
	requireKind(t, err, services.KindInvalidData)

	_, err = svc.Rewards.Delete(ctx, &admin.ID, store.ByID(reward.ID+1))
	require.Equal(t, "Reward not found", requireKind(t, err, services.KindNotFound).Message)
}
