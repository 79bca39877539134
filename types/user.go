package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// User represents an account in the system.
// Staff privileges are layered on top through a Staff record.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses or audit snapshots.
	PasswordHash string `json:"-" db:"password_hash"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	PhoneNumber  string `json:"phone_number" db:"phone_number"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name" db:"last_name"`
	Organisation string `json:"organisation" db:"organisation"`

	// DateOfBirth is used to enforce the registration minimum age.
	DateOfBirth Date `json:"date_of_birth" db:"date_of_birth"`

	// Frozen accounts keep read access but cannot submit or purchase.
	Frozen bool `json:"frozen" db:"frozen"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (User) Kind() ResourceKind { return KindUser }
func (u User) RecordID() int64 { return u.ID }

// AgeOn returns the user's age in whole years on the given day.
func (u User) AgeOn(day time.Time) int {
	dob := time.Time(u.DateOfBirth)
	years := day.Year() - dob.Year()
	if day.Month() < dob.Month() || (day.Month() == dob.Month() && day.Day() < dob.Day()) {
		years--
	}
	return years
}

// Staff grants a moderation role to an existing user.
type Staff struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Role      StaffRole `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (Staff) Kind() ResourceKind { return KindStaff }
func (s Staff) RecordID() int64 { return s.ID }

// Motivation is a user's free-text reason for taking part.
type Motivation struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Motivation string    `json:"motivation" db:"motivation"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func (Motivation) Kind() ResourceKind { return KindMotivation }
func (m Motivation) RecordID() int64 { return m.ID }

// StaffRole is the authorization level of a staff member.
// Admin implies every moderator privilege.
type StaffRole int

// Supported staff roles.
const (
	RoleModerator StaffRole = iota
	RoleAdmin
)

func (r StaffRole) String() string {
	switch r {
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseStaffRole parses the wire form of a role.
func ParseStaffRole(s string) (StaffRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "moderator":
		return RoleModerator, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("%w: staff role %q", ErrInvalidValue, s)
	}
}

func (r StaffRole) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *StaffRole) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseStaffRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r StaffRole) Value() (driver.Value, error) {
	switch r {
	case RoleModerator, RoleAdmin:
		return r.String(), nil
	default:
		return nil, fmt.Errorf("%w: staff role %d", ErrInvalidValue, int(r))
	}
}

func (r *StaffRole) Scan(src any) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseStaffRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Date is a calendar day without a time component.
type Date time.Time

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidValue, s)
	}
	return Date(t), nil
}

func (d Date) String() string {
	return time.Time(d).Format(dateLayout)
}

func (d Date) IsZero() bool {
	return time.Time(d).IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date(time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC))
		return nil
	case string, []byte:
		s, _ := scanString(v)
		if len(s) > len(dateLayout) {
			s = s[:len(dateLayout)]
		}
		parsed, err := ParseDate(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("unsupported scan type %T for date", src)
	}
}
