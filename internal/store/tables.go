package store

import (
	"strings"

	"github.com/binpoints/apiserver/types"
)

// Key selects rows by one column. Only columns registered for a table
// may be used, which keeps lookups a closed set.
type Key struct {
	Column string
	Value  any
}

func ByID(id int64) Key { return Key{Column: "id", Value: id} }
func ByUserID(userID int64) Key { return Key{Column: "user_id", Value: userID} }
func ByBinID(binID int64) Key { return Key{Column: "bin_id", Value: binID} }
func ByUsername(username string) Key { return Key{Column: "username", Value: username} }
func ByEmail(email string) Key { return Key{Column: "email", Value: email} }

type table struct {
	name    string
	columns []string
	keys    []string
}

func (t table) allows(column string) bool {
	for _, k := range t.keys {
		if k == column {
			return true
		}
	}
	return false
}

func (t table) selectList() string {
	return "id, " + strings.Join(t.columns, ", ")
}

func (t table) insertSQL() string {
	named := make([]string, len(t.columns))
	for i, c := range t.columns {
		named[i] = ":" + c
	}
	return "INSERT INTO " + t.name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + strings.Join(named, ", ") + ")"
}

func (t table) updateSQL() string {
	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = c + " = :" + c
	}
	return "UPDATE " + t.name + " SET " + strings.Join(sets, ", ") + " WHERE id = :id"
}

func tableFor(kind types.ResourceKind) (table, bool) {
	switch kind {
	case types.KindUser:
		return table{
			name: kind.String(),
			columns: []string{
				"username", "password_hash", "email", "phone_number", "first_name",
				"last_name", "date_of_birth", "organisation", "frozen", "created_at",
			},
			keys: []string{"id", "username", "email"},
		}, true
	case types.KindStaff:
		return table{
			name:    kind.String(),
			columns: []string{"user_id", "role", "created_at"},
			keys:    []string{"id", "user_id"},
		}, true
	case types.KindMotivation:
		return table{
			name:    kind.String(),
			columns: []string{"user_id", "motivation", "created_at"},
			keys:    []string{"id", "user_id"},
		}, true
	case types.KindBin:
		return table{
			name:    kind.String(),
			columns: []string{"latitude", "longitude", "whitelist", "name", "description", "created_at"},
			keys:    []string{"id"},
		}, true
	case types.KindAllowedRecyclable:
		return table{
			name:    kind.String(),
			columns: []string{"bin_id", "recyclable_id"},
			keys:    []string{"id", "bin_id"},
		}, true
	case types.KindRecyclable:
		return table{
			name:    kind.String(),
			columns: []string{"type", "points_value", "description", "weight", "created_at"},
			keys:    []string{"id"},
		}, true
	case types.KindSubmission:
		return table{
			name:    kind.String(),
			columns: []string{"recyclable_id", "user_id", "bin_id", "latitude", "longitude", "status", "created_at"},
			keys:    []string{"id", "user_id", "bin_id"},
		}, true
	case types.KindReward:
		return table{
			name:    kind.String(),
			columns: []string{"title", "description", "price", "created_at"},
			keys:    []string{"id"},
		}, true
	case types.KindPurchase:
		return table{
			name:    kind.String(),
			columns: []string{"user_id", "reward_id", "quantity", "created_at"},
			keys:    []string{"id", "user_id"},
		}, true
	case types.KindActionLog:
		return table{
			name: kind.String(),
			columns: []string{
				"user_id", "action_type", "resource_id", "resource_table",
				"data_before", "data_after", "logged_at",
			},
			keys: []string{"id"},
		}, true
	default:
		return table{}, false
	}
}
