package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Submission represents a recyclable handed in by a user at a bin.
// It is created by the user and afterwards only changed by moderators.
type Submission struct {
	// ID is the unique identifier of the submission.
	ID int64 `json:"id" db:"id"`

	// RecyclableID identifies the kind of item that was handed in.
	RecyclableID int64 `json:"recyclable_id" db:"recyclable_id"`

	// UserID identifies the user credited with the submission.
	UserID int64 `json:"user_id" db:"user_id"`

	// BinID identifies the bin the item was placed in.
	BinID int64 `json:"bin_id" db:"bin_id"`

	// Latitude and Longitude are the coordinates reported by the user
	// at the time of submission.
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`

	// Status is the moderation state. Only confirmed submissions
	// contribute points to the user's balance.
	Status SubmissionStatus `json:"status" db:"status"`

	// CreatedAt is the timestamp when the submission was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Submission) Kind() ResourceKind { return KindSubmission }
func (s Submission) RecordID() int64 { return s.ID }

// SubmissionStatus is the moderation state of a submission.
type SubmissionStatus int

// Supported submission statuses.
const (
	// StatusNotConfirmed is the initial state of every submission.
	StatusNotConfirmed SubmissionStatus = iota

	// StatusConfirmed marks a verified submission. Terminal.
	StatusConfirmed

	// StatusDenied marks a rejected submission. Terminal.
	StatusDenied

	// StatusModeratorRequired flags a submission for manual review. Terminal.
	StatusModeratorRequired
)

// String returns the wire representation of the status.
func (s SubmissionStatus) String() string {
	switch s {
	case StatusNotConfirmed:
		return "not_confirmed"
	case StatusConfirmed:
		return "confirmed"
	case StatusDenied:
		return "denied"
	case StatusModeratorRequired:
		return "moderator_required"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s SubmissionStatus) Terminal() bool {
	switch s {
	case StatusNotConfirmed:
		return false
	case StatusConfirmed, StatusDenied, StatusModeratorRequired:
		return true
	default:
		return true
	}
}

// CanTransitionTo reports whether a moderator may move a submission from s to next.
// Re-applying the current status is accepted as a no-op.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusNotConfirmed:
		switch next {
		case StatusConfirmed, StatusDenied, StatusModeratorRequired:
			return true
		default:
			return false
		}
	case StatusConfirmed, StatusDenied, StatusModeratorRequired:
		return false
	default:
		return false
	}
}

// ParseSubmissionStatus parses the wire form of a status.
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	switch s {
	case "not_confirmed":
		return StatusNotConfirmed, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "denied":
		return StatusDenied, nil
	case "moderator_required":
		return StatusModeratorRequired, nil
	default:
		return 0, fmt.Errorf("%w: submission status %q", ErrInvalidValue, s)
	}
}

func (s SubmissionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SubmissionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSubmissionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s SubmissionStatus) Value() (driver.Value, error) {
	if _, err := ParseSubmissionStatus(s.String()); err != nil {
		return nil, err
	}
	return s.String(), nil
}

func (s *SubmissionStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseSubmissionStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
