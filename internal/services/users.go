package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/binpoints/apiserver/config"
	"github.com/binpoints/apiserver/internal/store"
	"github.com/binpoints/apiserver/types"
)

const (
	msgUserNotFound    = "User not found"
	msgUsernameTaken   = "This username is already taken"
	msgEmailTaken      = "This email address has already been used"
	msgFreezeStaff     = "Freezing a staff account is not allowed"
	maxPasswordBytes   = 72
	msgPasswordInvalid = "password is required and must be at most 72 bytes"
)

// RegisterRequest carries the fields a new account is created from.
type RegisterRequest struct {
	Username     string     `json:"username"`
	Password     string     `json:"password"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phone_number"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DateOfBirth  types.Date `json:"date_of_birth"`
	Organisation string     `json:"organisation"`
}

// LoginRequest identifies a user by exactly one of Username or Email.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserService encapsulates account use cases.
type UserService struct {
	store       *store.Store
	users       *CRUDService[types.User]
	submissions *store.Repository[types.Submission]
	purchases   *store.Repository[types.Purchase]
	balance     *BalanceCalculator
	minimumAge  int
	now         func() time.Time
}

func NewUserService(s *store.Store, rules config.RulesConfig) *UserService {
	return &UserService{
		store:       s,
		users:       NewCRUDService[types.User](s, msgUserNotFound),
		submissions: store.NewRepository[types.Submission](s),
		purchases:   store.NewRepository[types.Purchase](s),
		balance:     NewBalanceCalculator(s),
		minimumAge:  rules.MinimumAge,
		now:         time.Now,
	}
}

// Register creates an account. No actor is recorded since the caller is
// not logged in yet.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (types.User, error) {
	user := types.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Organisation: strings.TrimSpace(req.Organisation),
		DateOfBirth:  req.DateOfBirth,
	}
	if err := user.Validate(); err != nil {
		return types.User{}, translate(err, msgUserNotFound)
	}
	if err := validatePassword(req.Password); err != nil {
		return types.User{}, err
	}

	if err := s.ensureUnique(ctx, store.ByUsername(user.Username), msgUsernameTaken); err != nil {
		return types.User{}, err
	}
	if err := s.ensureUnique(ctx, store.ByEmail(user.Email), msgEmailTaken); err != nil {
		return types.User{}, err
	}

	if user.AgeOn(s.now()) < s.minimumAge {
		return types.User{}, Forbidden(fmt.Sprintf("You must be over the age of %d", s.minimumAge))
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = hash

	return s.users.Create(ctx, nil, user)
}

// Authenticate checks credentials. Unknown users and wrong passwords fail
// the same way.
func (s *UserService) Authenticate(ctx context.Context, req LoginRequest) (types.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	var key store.Key
	switch {
	case username != "" && email != "":
		return types.User{}, &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: "Cannot send both username and email"}
	case username != "":
		key = store.ByUsername(username)
	case email != "":
		key = store.ByEmail(email)
	default:
		return types.User{}, &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: "Either username or email is required"}
	}
	if req.Password == "" {
		return types.User{}, &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: "password is required"}
	}

	user, err := s.users.Get(ctx, key)
	if err != nil {
		if AsError(err).Kind == KindNotFound {
			return types.User{}, FailedAuthentication()
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return types.User{}, FailedAuthentication()
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (types.User, error) {
	return s.users.Get(ctx, store.ByID(id))
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.users.List(ctx)
}

// Update applies patch. A new password is hashed before it is stored.
func (s *UserService) Update(ctx context.Context, actor int64, id int64, patch types.UserPatch) (types.User, error) {
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return types.User{}, err
		}
		hash, err := hashPassword(*patch.Password)
		if err != nil {
			return types.User{}, err
		}
		patch.PasswordHash = &hash
		patch.Password = nil
	}
	patch.Frozen = nil
	return s.users.Update(ctx, &actor, store.ByID(id), patch.Apply)
}

func (s *UserService) Delete(ctx context.Context, actor int64, id int64) (types.User, error) {
	return s.users.Delete(ctx, &actor, store.ByID(id))
}

// SetFrozen freezes or unfreezes an account. Staff accounts cannot be frozen.
func (s *UserService) SetFrozen(ctx context.Context, actor int64, id int64, frozen bool) (types.User, error) {
	if frozen {
		_, staff, err := s.store.StaffRole(ctx, id)
		if err != nil {
			return types.User{}, ServerError(err)
		}
		if staff {
			return types.User{}, Forbidden(msgFreezeStaff)
		}
	}
	patch := types.UserPatch{Frozen: &frozen}
	return s.users.Update(ctx, &actor, store.ByID(id), patch.Apply)
}

// IsFrozen reports whether the account is frozen.
func (s *UserService) IsFrozen(ctx context.Context, id int64) (bool, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Frozen, nil
}

// Submissions lists the user's submissions, oldest first.
func (s *UserService) Submissions(ctx context.Context, id int64) ([]types.Submission, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	subs, err := s.submissions.ListBy(ctx, s.store.DB(), store.ByUserID(id))
	return subs, translate(err, msgUserNotFound)
}

// Purchases lists the user's purchases, oldest first.
func (s *UserService) Purchases(ctx context.Context, id int64) ([]types.Purchase, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	purchases, err := s.purchases.ListBy(ctx, s.store.DB(), store.ByUserID(id))
	return purchases, translate(err, msgUserNotFound)
}

// Balance returns the user's current point balance.
func (s *UserService) Balance(ctx context.Context, id int64) (int64, error) {
	return s.balance.Balance(ctx, s.store.DB(), id)
}

func (s *UserService) ensureUnique(ctx context.Context, key store.Key, message string) error {
	_, err := s.users.Get(ctx, key)
	switch {
	case err == nil:
		return Conflict(message)
	case AsError(err).Kind == KindNotFound:
		return nil
	default:
		return err
	}
}

func validatePassword(password string) error {
	if password == "" || len(password) > maxPasswordBytes {
		return &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: msgPasswordInvalid}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &Error{Kind: KindInvalidData, Message: msgInvalidData, Details: msgPasswordInvalid}
		}
		return "", ServerError(err)
	}
	return string(hashed), nil
}
