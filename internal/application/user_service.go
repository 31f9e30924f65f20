package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/example/tutoring-scheduler/internal/persistence"
)

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for
// platform accounts.
type UserService struct {
	users        persistence.UserRepository
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
}

// NewUserService wires dependencies for the user service.
func NewUserService(users persistence.UserRepository, hashPassword PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	if hashPassword == nil {
		hashPassword = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hashPassword, idGenerator: idGenerator, now: now}
}

// CreateUser validates input and persists a new account for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !params.Principal.IsAdmin() {
		return User{}, ErrUnauthorized
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateUserInput(normalized, true)
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := s.hashPassword(normalized.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Email:        normalized.Email,
		DisplayName:  normalized.DisplayName,
		Role:         normalized.Role,
		TimeZone:     normalized.TimeZone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if s.users == nil {
		return userFromRecord(record), nil
	}

	if err := s.users.CreateUser(ctx, record); err != nil {
		return User{}, mapRepoError(err)
	}
	return userFromRecord(record), nil
}

// UpdateUser validates input and updates an account. Administrators may update
// anyone; other principals only themselves, and never their own role.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if !params.Principal.IsAdmin() && params.Principal.UserID != params.UserID {
		return User{}, ErrUnauthorized
	}

	existing, err := s.users.GetUser(ctx, params.UserID)
	if err != nil {
		return User{}, mapRepoError(err)
	}

	normalized := normalizeUserInput(params.Input)
	if normalized.Role == "" {
		normalized.Role = existing.Role
	}
	if !params.Principal.IsAdmin() && normalized.Role != existing.Role {
		return User{}, ErrUnauthorized
	}

	vErr := validateUserInput(normalized, normalized.Password != "")
	if normalized.Password == "" {
		delete(vErr.FieldErrors, "password")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	updated := existing
	updated.Email = normalized.Email
	updated.DisplayName = normalized.DisplayName
	updated.Role = normalized.Role
	updated.TimeZone = normalized.TimeZone
	updated.UpdatedAt = s.now()
	if normalized.Password != "" {
		hash, err := s.hashPassword(normalized.Password)
		if err != nil {
			return User{}, err
		}
		updated.PasswordHash = hash
	}

	if err := s.users.UpdateUser(ctx, updated); err != nil {
		return User{}, mapRepoError(err)
	}
	return userFromRecord(updated), nil
}

// GetUser returns one account. Administrators may read anyone; other
// principals only themselves.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if !principal.IsAdmin() && principal.UserID != userID {
		return User{}, ErrUnauthorized
	}

	record, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return userFromRecord(record), nil
}

// ListUsers returns accounts, optionally filtered by role. Administrators may
// list anyone; other principals may only enumerate tutors.
func (s *UserService) ListUsers(ctx context.Context, principal Principal, role string) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, nil
	}
	if !principal.IsAdmin() && role != RoleTutor {
		return nil, ErrUnauthorized
	}

	records, err := s.users.ListUsers(ctx, role)
	if err != nil {
		return nil, mapRepoError(err)
	}

	out := make([]User, 0, len(records))
	for _, record := range records {
		out = append(out, userFromRecord(record))
	}
	return out, nil
}

// DeleteUser removes an account when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        strings.ToLower(strings.TrimSpace(input.Role)),
		TimeZone:    strings.TrimSpace(input.TimeZone),
		Password:    input.Password,
	}
}

func validateUserInput(input UserInput, requirePassword bool) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	switch input.Role {
	case RoleAdmin, RoleTutor, RoleStudent:
	default:
		vErr.add("role", "role must be admin, tutor, or student")
	}

	if input.TimeZone == "" {
		vErr.add("time_zone", "time zone is required")
	} else if _, err := time.LoadLocation(input.TimeZone); err != nil {
		vErr.add("time_zone", "time zone is not a valid IANA zone name")
	}

	if requirePassword {
		if len(input.Password) < 8 {
			vErr.add("password", "password must be at least 8 characters")
		}
	}

	return vErr
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("references", "related records are missing")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("input", "input violates a storage constraint")
		return vErr
	}
	return err
}
