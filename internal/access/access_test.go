package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/binpoints/apiserver/types"
)

type ownerKey struct {
	kind types.ResourceKind
	id   int64
}

type fakeDirectory struct {
	roles  map[int64]types.StaffRole
	owners map[ownerKey]int64
	err    error
	calls  []string
}

func (f *fakeDirectory) StaffRole(_ context.Context, userID int64) (types.StaffRole, bool, error) {
	f.calls = append(f.calls, "role")
	if f.err != nil {
		return 0, false, f.err
	}
	role, ok := f.roles[userID]
	return role, ok, nil
}

func (f *fakeDirectory) OwnerOf(_ context.Context, kind types.ResourceKind, id int64) (int64, bool, error) {
	f.calls = append(f.calls, "owner")
	if f.err != nil {
		return 0, false, f.err
	}
	if kind == types.KindUser {
		return id, true, nil
	}
	owner, ok := f.owners[ownerKey{kind, id}]
	return owner, ok, nil
}

const (
	alice = int64(1)
	bob   = int64(2)
	mod   = int64(3)
	admin = int64(4)
)

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		roles: map[int64]types.StaffRole{mod: types.RoleModerator, admin: types.RoleAdmin},
		owners: map[ownerKey]int64{
			{types.KindSubmission, 10}: alice,
			{types.KindPurchase, 20}:   bob,
		},
	}
}

func TestRoleHierarchy(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(newDirectory())

	for _, tc := range []struct {
		actor     int64
		moderator bool
		admin     bool
		level     Level
	}{
		{alice, false, false, LevelUser},
		{mod, true, false, LevelModerator},
		{admin, true, true, LevelAdmin},
	} {
		ok, err := e.HasModeratorAccess(ctx, tc.actor)
		require.NoError(t, err)
		require.Equal(t, tc.moderator, ok)

		ok, err = e.HasAdminAccess(ctx, tc.actor)
		require.NoError(t, err)
		require.Equal(t, tc.admin, ok)

		level, err := e.LevelOf(ctx, tc.actor)
		require.NoError(t, err)
		require.Equal(t, tc.level, level)
	}
}

func TestIsOwner(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(newDirectory())

	ok, err := e.IsOwner(ctx, alice, types.KindUser, alice)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.IsOwner(ctx, alice, types.KindUser, bob)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.IsOwner(ctx, alice, types.KindSubmission, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.IsOwner(ctx, alice, types.KindPurchase, 20)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = e.IsOwner(ctx, alice, types.KindSubmission, 999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCombinedChecksOrder(t *testing.T) {
	ctx := context.Background()

	dir := newDirectory()
	ok, err := NewEvaluator(dir).IsOwnerOrModerator(ctx, mod, types.KindPurchase, 20)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"role"}, dir.calls)

	dir = newDirectory()
	ok, err = NewEvaluator(dir).IsOwnerOrAdmin(ctx, mod, types.KindPurchase, 20)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []string{"role", "owner"}, dir.calls)

	dir = newDirectory()
	ok, err = NewEvaluator(dir).IsOwnerOrAdmin(ctx, bob, types.KindPurchase, 20)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"role", "owner"}, dir.calls)
}

func TestLookupFailureDeniesAccess(t *testing.T) {
	ctx := context.Background()
	dir := newDirectory()
	dir.err = errors.New("connection reset")
	e := NewEvaluator(dir)

	ok, err := e.IsOwnerOrModerator(ctx, admin, types.KindSubmission, 10)
	require.Error(t, err)
	require.False(t, ok)

	ok, err = e.HasAdminAccess(ctx, admin)
	require.Error(t, err)
	require.False(t, ok)
}
