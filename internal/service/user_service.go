package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/advisor-scheduler/internal/apperror"
	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/repository"
)

// NewUser is the input of UserService.Create.  Which fields are honoured
// depends on the CreatePolicy.
type NewUser struct {
	FirstName         string
	SecondName        *string
	LastName          string
	Email             string
	PhoneNumber       *string
	Document          *string
	Password          *string
	Role              model.Role
	IsActive          bool
	GoogleAccessToken *string
}

// CreatePolicy says which privileged fields a creation path may set.
type CreatePolicy struct {
	RequirePassword    bool
	AllowRole          bool
	AllowActive        bool
	AllowExternalToken bool
}

var (
	// RegisterPolicy is self-service sign-up: password required, always
	// REGULAR and inactive until the email is confirmed.
	RegisterPolicy = CreatePolicy{RequirePassword: true}
	// ExternalPolicy is first login through Google: no password, keeps the
	// provider token.
	ExternalPolicy = CreatePolicy{AllowExternalToken: true}
	// AdminPolicy is account creation by an administrator.
	AdminPolicy = CreatePolicy{AllowRole: true, AllowActive: true, AllowExternalToken: true}
)

// UserService manages user accounts.
type UserService struct {
	users  UserStore
	hasher PasswordHasher
}

func NewUserService(users UserStore, hasher PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

func conflictMessage(field string) string {
	switch field {
	case "phone_number":
		return "Phone number already registered"
	case "document":
		return "Document already registered"
	default:
		return "Email already registered"
	}
}

// taken reports whether lookup finds a row other than selfID.
func taken(ctx context.Context, selfID uint64, lookup func(context.Context, string) (model.User, error), value string) (bool, error) {
	u, err := lookup(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Internal("could not check uniqueness", err)
	}
	return u.ID != selfID, nil
}

// checkUnique enforces email, then phone, then document uniqueness.
func (s *UserService) checkUnique(ctx context.Context, selfID uint64, email, phone, document *string) error {
	checks := []struct {
		field  string
		value  *string
		lookup func(context.Context, string) (model.User, error)
	}{
		{"email", email, s.users.GetByEmail},
		{"phone_number", phone, s.users.GetByPhone},
		{"document", document, s.users.GetByDocument},
	}
	for _, c := range checks {
		if c.value == nil || *c.value == "" {
			continue
		}
		dup, err := taken(ctx, selfID, c.lookup, *c.value)
		if err != nil {
			return err
		}
		if dup {
			return apperror.Conflict(conflictMessage(c.field))
		}
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return apperror.Validation("Password must be at least 7 characters long.")
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// trimmed trims an optional update value but keeps a blank one, which
// clears the column.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Create validates in, applies the policy and stores the user.
func (s *UserService) Create(ctx context.Context, in NewUser, p CreatePolicy) (model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = blankToNil(in.PhoneNumber)
	in.Document = blankToNil(in.Document)
	if in.Email == "" {
		return model.User{}, apperror.Validation("Email is required")
	}

	if err := s.checkUnique(ctx, 0, &in.Email, in.PhoneNumber, in.Document); err != nil {
		return model.User{}, err
	}

	u := model.User{
		FirstName:   in.FirstName,
		SecondName:  blankToNil(in.SecondName),
		LastName:    in.LastName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Document:    in.Document,
		Role:        model.RoleRegular,
	}
	if p.RequirePassword && in.Password == nil {
		return model.User{}, apperror.Validation("Password must be at least 7 characters long.")
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return model.User{}, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return model.User{}, apperror.Internal("could not hash password", err)
		}
		u.PasswordHash = &hash
	}
	if p.AllowRole && in.Role != "" {
		if !in.Role.Valid() {
			return model.User{}, apperror.Validation("Unknown role")
		}
		u.Role = in.Role
	}
	if p.AllowActive {
		u.IsActive = in.IsActive
	}
	if p.AllowExternalToken {
		u.GoogleAccessToken = in.GoogleAccessToken
	}

	id, err := s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, apperror.Conflict(conflictMessage(repository.DuplicateField(err)))
		}
		return model.User{}, apperror.Internal("could not create user", err)
	}
	return s.Get(ctx, id)
}

// Get returns the user with id.
func (s *UserService) Get(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperror.NotFound("User not found")
	}
	if err != nil {
		return model.User{}, apperror.Internal("could not load user", err)
	}
	return u, nil
}

// FindByEmail returns the user with email, or a NOT_FOUND error.
func (s *UserService) FindByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperror.NotFound("User not found")
	}
	if err != nil {
		return model.User{}, apperror.Internal("could not load user", err)
	}
	return u, nil
}

// List pages through users.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		return nil, apperror.Internal("could not list users", err)
	}
	return users, nil
}

// Update applies upd.  A plaintext Password is validated and hashed;
// changed email, phone or document are checked for uniqueness first.  A
// blank second name, phone or document clears it.
func (s *UserService) Update(ctx context.Context, id uint64, upd model.UserUpdate) (model.User, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	upd.SecondName = trimmed(upd.SecondName)
	upd.PhoneNumber = trimmed(upd.PhoneNumber)
	upd.Document = trimmed(upd.Document)
	if upd.Email != nil {
		e := strings.TrimSpace(*upd.Email)
		if e == "" {
			return model.User{}, apperror.Validation("Email is required")
		}
		upd.Email = &e
	}
	if err := s.checkUnique(ctx, cur.ID, upd.Email, upd.PhoneNumber, upd.Document); err != nil {
		return model.User{}, err
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return model.User{}, apperror.Validation("Unknown role")
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return model.User{}, err
		}
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return model.User{}, apperror.Internal("could not hash password", err)
		}
		upd.PasswordHash = &hash
		upd.Password = nil
	}
	if upd.Empty() {
		return cur, nil
	}
	if err := s.users.Update(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return model.User{}, apperror.Conflict(conflictMessage(repository.DuplicateField(err)))
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, apperror.NotFound("User not found")
		}
		return model.User{}, apperror.Internal("could not update user", err)
	}
	return s.Get(ctx, id)
}

func (s *UserService) storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("User not found")
	case err != nil:
		return apperror.Internal("could not update user", err)
	}
	return nil
}

// Activate marks the account active.
func (s *UserService) Activate(ctx context.Context, id uint64) (model.User, error) {
	if err := s.storeError(s.users.SetActive(ctx, id, true)); err != nil {
		return model.User{}, err
	}
	return s.Get(ctx, id)
}

// SetExternalToken replaces the stored external-provider access token.
func (s *UserService) SetExternalToken(ctx context.Context, id uint64, tok string) (model.User, error) {
	if err := s.storeError(s.users.SetExternalToken(ctx, id, tok)); err != nil {
		return model.User{}, err
	}
	return s.Get(ctx, id)
}

// Delete removes the user together with its tokens and meetings.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("User not found")
	}
	if err != nil {
		return apperror.Internal("could not delete user", err)
	}
	return nil
}
