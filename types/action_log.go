package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActionLog is an append-only audit entry describing one committed mutation.
type ActionLog struct {
	ID int64 `json:"id" db:"id"`

	// UserID is the acting user. It is nil for self-registration and
	// carries no foreign key so entries outlive deleted accounts.
	UserID *int64 `json:"user_id" db:"user_id"`

	ActionType    ActionType `json:"action_type" db:"action_type"`
	ResourceID    int64      `json:"resource_id" db:"resource_id"`
	ResourceTable string     `json:"resource_table" db:"resource_table"`

	// DataBefore is nil for creates, DataAfter is nil for deletes.
	DataBefore Snapshot `json:"data_before" db:"data_before"`
	DataAfter  Snapshot `json:"data_after" db:"data_after"`

	Timestamp time.Time `json:"timestamp" db:"logged_at"`
}

func (ActionLog) Kind() ResourceKind { return KindActionLog }
func (a ActionLog) RecordID() int64 { return a.ID }

// ActionType is the kind of mutation recorded by an ActionLog.
type ActionType int

// Supported action types. ActionRead is part of the taxonomy but no
// repository operation records reads.
const (
	ActionCreate ActionType = iota
	ActionRead
	ActionUpdate
	ActionDelete
)

func (a ActionType) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

func ParseActionType(s string) (ActionType, error) {
	switch s {
	case "create":
		return ActionCreate, nil
	case "read":
		return ActionRead, nil
	case "update":
		return ActionUpdate, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, fmt.Errorf("%w: action type %q", ErrInvalidValue, s)
	}
}

func (a ActionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a ActionType) Value() (driver.Value, error) {
	if _, err := ParseActionType(a.String()); err != nil {
		return nil, err
	}
	return a.String(), nil
}

func (a *ActionType) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Snapshot is the JSON rendering of a record at one point in time.
// A nil Snapshot is stored as SQL NULL and rendered as JSON null.
type Snapshot []byte

// NewSnapshot captures v as JSON.
func NewSnapshot(v any) (Snapshot, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Snapshot(data), nil
}

// Decode unmarshals the snapshot into v.
func (s Snapshot) Decode(v any) error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty snapshot", ErrInvalidValue)
	}
	return json.Unmarshal(s, v)
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte(s), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	*s = append((*s)[:0], data...)
	return nil
}

func (s Snapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return string(s), nil
}

func (s *Snapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case []byte:
		*s = append(Snapshot(nil), v...)
	case string:
		*s = Snapshot(v)
	default:
		return fmt.Errorf("unsupported scan type %T for snapshot", src)
	}
	return nil
}
