package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmissionStatusTransitions(t *testing.T) {
	all := []SubmissionStatus{StatusNotConfirmed, StatusConfirmed, StatusDenied, StatusModeratorRequired}
	for _, from := range all {
		for _, to := range all {
			want := from == to || from == StatusNotConfirmed
			require.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	require.False(t, StatusNotConfirmed.Terminal())
	require.True(t, StatusDenied.Terminal())
}

func TestSubmissionPatchRejectsTerminalChange(t *testing.T) {
	sub := Submission{RecyclableID: 1, UserID: 1, BinID: 1, Status: StatusConfirmed}
	denied := StatusDenied
	err := SubmissionPatch{Status: &denied}.Apply(&sub)
	require.ErrorIs(t, err, ErrInvalidValue)
	require.Equal(t, StatusConfirmed, sub.Status)
}

func TestParseEnumsRejectUnknownValues(t *testing.T) {
	_, err := ParseSubmissionStatus("approved")
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = ParseStaffRole("owner")
	require.ErrorIs(t, err, ErrInvalidValue)
	_, err = ParseResourceKind("accounts")
	require.ErrorIs(t, err, ErrInvalidValue)

	var status SubmissionStatus
	require.Error(t, json.Unmarshal([]byte(`"pending"`), &status))
	require.NoError(t, json.Unmarshal([]byte(`"moderator_required"`), &status))
	require.Equal(t, StatusModeratorRequired, status)
}

func TestDateScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2001-02-03"))
	require.Equal(t, "2001-02-03", d.String())

	require.NoError(t, d.Scan([]byte("1999-12-31")))
	require.Equal(t, "1999-12-31", d.String())

	require.NoError(t, d.Scan(time.Date(2010, time.May, 6, 13, 0, 0, 0, time.UTC)))
	require.Equal(t, "2010-05-06", d.String())

	out, err := json.Marshal(d)
	require.NoError(t, err)
	require.JSONEq(t, `"2010-05-06"`, string(out))

	require.Error(t, json.Unmarshal([]byte(`"06/05/2010"`), &d))
}

func TestAgeOn(t *testing.T) {
	dob, err := ParseDate("2008-06-15")
	require.NoError(t, err)
	u := User{DateOfBirth: dob}

	require.Equal(t, 15, u.AgeOn(time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 16, u.AgeOn(time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSnapshot(t *testing.T) {
	snap, err := NewSnapshot(User{ID: 7, Username: "alice", PasswordHash: "secret"})
	require.NoError(t, err)
	require.NotContains(t, string(snap), "secret")

	var u User
	require.NoError(t, snap.Decode(&u))
	require.Equal(t, int64(7), u.ID)

	out, err := json.Marshal(ActionLog{ActionType: ActionDelete, DataBefore: snap})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Nil(t, decoded["data_after"])
	require.Equal(t, "alice", decoded["data_before"].(map[string]any)["username"])
	require.Equal(t, "delete", decoded["action_type"])

	var empty Snapshot
	v, err := empty.Value()
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestPatchesValidate(t *testing.T) {
	reward := Reward{Title: "mug", Price: 10}
	negative := int64(-1)
	require.ErrorIs(t, RewardPatch{Price: &negative}.Apply(&reward), ErrInvalidValue)

	blank := "   "
	require.ErrorIs(t, RewardPatch{Title: &blank}.Apply(&Reward{Title: "mug"}), ErrInvalidValue)

	lat := 91.0
	require.ErrorIs(t, BinPatch{Latitude: &lat}.Apply(&Bin{Latitude: 1, Longitude: 1}), ErrInvalidValue)

	zero := int64(0)
	require.ErrorIs(t, PurchasePatch{Quantity: &zero}.Apply(&Purchase{UserID: 1, RewardID: 1, Quantity: 1}), ErrInvalidValue)

	huge := int64(1 << 62)
	require.ErrorIs(t, PurchasePatch{Quantity: &huge}.Apply(&Purchase{UserID: 1, RewardID: 1, Quantity: 1}), ErrInvalidValue)
	require.ErrorIs(t, RewardPatch{Price: &huge}.Apply(&Reward{Title: "mug"}), ErrInvalidValue)
	require.ErrorIs(t, RecyclablePatch{PointsValue: &huge}.Apply(&Recyclable{Type: "can"}), ErrInvalidValue)

	most := int64(MaxPurchaseQuantity)
	require.NoError(t, PurchasePatch{Quantity: &most}.Apply(&Purchase{UserID: 1, RewardID: 1, Quantity: 1}))

	bin := Bin{Latitude: 1, Longitude: 1}
	name := "  renamed "
	require.NoError(t, BinPatch{Name: &name}.Apply(&bin))
	require.Equal(t, "renamed", bin.Name)
}
