package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Patches carry the optional fields a caller may change on a record.
// Apply copies the set fields onto the record and validates the result,
// so a patch can never leave a record in a state creation would reject.

type UserPatch struct {
	Username     *string `json:"username"`
	Password     *string `json:"password"`
	Email        *string `json:"email"`
	PhoneNumber  *string `json:"phone_number"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	DateOfBirth  *Date   `json:"date_of_birth"`
	Organisation *string `json:"organisation"`

	// PasswordHash and Frozen are set by services only.
	PasswordHash *string `json:"-"`
	Frozen       *bool   `json:"-"`
}

func (p UserPatch) Apply(u *User) error {
	setString(&u.Username, p.Username)
	setString(&u.Email, p.Email)
	setString(&u.PhoneNumber, p.PhoneNumber)
	setString(&u.FirstName, p.FirstName)
	setString(&u.LastName, p.LastName)
	setString(&u.Organisation, p.Organisation)
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Frozen != nil {
		u.Frozen = *p.Frozen
	}
	return u.Validate()
}

func (u User) Validate() error {
	return firstError(
		requiredText("username", u.Username, 100),
		requiredText("email", u.Email, 320),
		check(strings.Contains(u.Email, "@"), "email must be a valid address"),
		maxText("phone_number", u.PhoneNumber, 15),
		maxText("first_name", u.FirstName, 255),
		maxText("last_name", u.LastName, 255),
		maxText("organisation", u.Organisation, 255),
		check(!u.DateOfBirth.IsZero(), "date_of_birth is required"),
	)
}

type StaffPatch struct {
	UserID *int64     `json:"user_id"`
	Role   *StaffRole `json:"role"`
}

func (p StaffPatch) Apply(s *Staff) error {
	setInt(&s.UserID, p.UserID)
	if p.Role != nil {
		s.Role = *p.Role
	}
	return s.Validate()
}

func (s Staff) Validate() error {
	_, err := ParseStaffRole(s.Role.String())
	return firstError(positive("user_id", s.UserID), err)
}

type MotivationPatch struct {
	UserID     *int64  `json:"user_id"`
	Motivation *string `json:"motivation"`
}

func (p MotivationPatch) Apply(m *Motivation) error {
	setInt(&m.UserID, p.UserID)
	setString(&m.Motivation, p.Motivation)
	return m.Validate()
}

func (m Motivation) Validate() error {
	return firstError(
		positive("user_id", m.UserID),
		requiredText("motivation", m.Motivation, 2000),
	)
}

type BinPatch struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Whitelist   *bool    `json:"whitelist"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
}

func (p BinPatch) Apply(b *Bin) error {
	setFloat(&b.Latitude, p.Latitude)
	setFloat(&b.Longitude, p.Longitude)
	if p.Whitelist != nil {
		b.Whitelist = *p.Whitelist
	}
	setString(&b.Name, p.Name)
	setString(&b.Description, p.Description)
	return b.Validate()
}

func (b Bin) Validate() error {
	return firstError(
		coordinates(b.Latitude, b.Longitude),
		maxText("name", b.Name, 200),
		maxText("description", b.Description, 2000),
	)
}

func (a AllowedRecyclable) Validate() error {
	return firstError(positive("bin_id", a.BinID), positive("recyclable_id", a.RecyclableID))
}

type RecyclablePatch struct {
	Type        *string  `json:"type"`
	PointsValue *int64   `json:"points_value"`
	Description *string  `json:"description"`
	Weight      *float64 `json:"weight"`
}

func (p RecyclablePatch) Apply(r *Recyclable) error {
	setString(&r.Type, p.Type)
	setInt(&r.PointsValue, p.PointsValue)
	setString(&r.Description, p.Description)
	setFloat(&r.Weight, p.Weight)
	return r.Validate()
}

func (r Recyclable) Validate() error {
	return firstError(
		requiredText("type", r.Type, 200),
		check(r.PointsValue >= 0, "points_value must not be negative"),
		check(r.PointsValue <= MaxPoints, fmt.Sprintf("points_value must be at most %d", MaxPoints)),
		maxText("description", r.Description, 500),
		check(r.Weight >= 0, "weight must not be negative"),
	)
}

type SubmissionPatch struct {
	RecyclableID *int64            `json:"recyclable_id"`
	UserID       *int64            `json:"user_id"`
	BinID        *int64            `json:"bin_id"`
	Status       *SubmissionStatus `json:"status"`
}

func (p SubmissionPatch) Apply(s *Submission) error {
	setInt(&s.RecyclableID, p.RecyclableID)
	setInt(&s.UserID, p.UserID)
	setInt(&s.BinID, p.BinID)
	if p.Status != nil {
		if !s.Status.CanTransitionTo(*p.Status) {
			return fmt.Errorf("%w: cannot change status from %s to %s", ErrInvalidValue, s.Status, *p.Status)
		}
		s.Status = *p.Status
	}
	return s.Validate()
}

func (s Submission) Validate() error {
	return firstError(
		positive("recyclable_id", s.RecyclableID),
		positive("user_id", s.UserID),
		positive("bin_id", s.BinID),
		coordinates(s.Latitude, s.Longitude),
	)
}

type RewardPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
}

func (p RewardPatch) Apply(r *Reward) error {
	setString(&r.Title, p.Title)
	setString(&r.Description, p.Description)
	setInt(&r.Price, p.Price)
	return r.Validate()
}

func (r Reward) Validate() error {
	return firstError(
		requiredText("title", r.Title, 255),
		maxText("description", r.Description, 2000),
		check(r.Price >= 0, "price must not be negative"),
		check(r.Price <= MaxPoints, fmt.Sprintf("price must be at most %d", MaxPoints)),
	)
}

// Bounds on point values and quantities. Together they keep any single
// price*quantity, and the balance sums over them, well inside int64.
const (
	MaxPoints           = 1_000_000_000
	MaxPurchaseQuantity = 1_000
)

type PurchasePatch struct {
	UserID   *int64 `json:"user_id"`
	RewardID *int64 `json:"reward_id"`
	Quantity *int64 `json:"quantity"`
}

func (p PurchasePatch) Apply(pu *Purchase) error {
	setInt(&pu.UserID, p.UserID)
	setInt(&pu.RewardID, p.RewardID)
	setInt(&pu.Quantity, p.Quantity)
	return pu.Validate()
}

func (p Purchase) Validate() error {
	return firstError(
		positive("user_id", p.UserID),
		positive("reward_id", p.RewardID),
		check(p.Quantity >= 1, "quantity must be at least 1"),
		check(p.Quantity <= MaxPurchaseQuantity, fmt.Sprintf("quantity must be at most %d", MaxPurchaseQuantity)),
	)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func check(ok bool, msg string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidValue, msg)
}

func positive(field string, v int64) error {
	return check(v > 0, field+" is required")
}

func requiredText(field, v string, max int) error {
	if strings.TrimSpace(v) == "" {
		return check(false, field+" is required")
	}
	return maxText(field, v, max)
}

func maxText(field, v string, max int) error {
	return check(utf8.RuneCountInString(v) <= max, fmt.Sprintf("%s must be at most %d characters", field, max))
}

func coordinates(lat, lon float64) error {
	return firstError(
		check(lat >= -90 && lat <= 90, "latitude must be between -90 and 90"),
		check(lon >= -180 && lon <= 180, "longitude must be between -180 and 180"),
	)
}
