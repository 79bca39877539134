package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidValue is wrapped by every validation failure raised while
// parsing enums or applying patches.
var ErrInvalidValue = errors.New("invalid value")

// ResourceKind identifies a persisted resource type. Each kind maps to
// exactly one table.
type ResourceKind int

// Supported resource kinds.
const (
	KindUser ResourceKind = iota
	KindStaff
	KindMotivation
	KindBin
	KindAllowedRecyclable
	KindRecyclable
	KindSubmission
	KindReward
	KindPurchase
	KindActionLog
)

// ResourceKinds lists every kind in declaration order.
var ResourceKinds = []ResourceKind{
	KindUser,
	KindStaff,
	KindMotivation,
	KindBin,
	KindAllowedRecyclable,
	KindRecyclable,
	KindSubmission,
	KindReward,
	KindPurchase,
	KindActionLog,
}

// String returns the table name backing the kind.
func (k ResourceKind) String() string {
	switch k {
	case KindUser:
		return "users"
	case KindStaff:
		return "staff"
	case KindMotivation:
		return "motivations"
	case KindBin:
		return "bins"
	case KindAllowedRecyclable:
		return "allowed_recyclables"
	case KindRecyclable:
		return "recyclables"
	case KindSubmission:
		return "submissions"
	case KindReward:
		return "rewards"
	case KindPurchase:
		return "purchases"
	case KindActionLog:
		return "user_action_logs"
	default:
		return "unknown"
	}
}

// ParseResourceKind resolves a table name to its kind.
func ParseResourceKind(s string) (ResourceKind, error) {
	for _, k := range ResourceKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: resource kind %q", ErrInvalidValue, s)
}

func (k ResourceKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ResourceKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseResourceKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k ResourceKind) Value() (driver.Value, error) {
	return k.String(), nil
}

func (k *ResourceKind) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseResourceKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported scan type %T", src)
	}
}
