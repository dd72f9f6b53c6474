// Package services – UserService
//
// This file implements the UserService, which manages directory entries. It
// normalizes and validates usernames and emails, enforces who may delete whom,
// and translates repository failures into the service-level errors declared
// in errors.go. Unexpected repository failures are returned unchanged so the
// HTTP boundary converts them into a generic 500.
package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-route-errors/internal/domain"
	"github.com/tbourn/go-route-errors/internal/repo"
)

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	// CreateUser inserts a user; repo.ErrDuplicate on username collision.
	CreateUser(ctx context.Context, db *gorm.DB, username, email, role string) (*domain.User, error)
	// GetUser fetches a user by id; repo.ErrNotFound when missing.
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
	// CountUsers returns the number of live users.
	CountUsers(ctx context.Context, db *gorm.DB) (int64, error)
	// ListUsersPage returns a page of users, newest first.
	ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error)
	// DeleteUser soft-deletes a user; repo.ErrNotFound when missing.
	DeleteUser(ctx context.Context, db *gorm.DB, id string) error
}

// UserService provides user directory operations.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo

	// MinUsernameLen and MaxUsernameLen bound usernames by rune count.
	MinUsernameLen int
	MaxUsernameLen int
}

// NewUserService constructs a UserService with default username bounds.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{
		DB:             db,
		Repo:           r,
		MinUsernameLen: 3,
		MaxUsernameLen: 32,
	}
}

var usernameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Create validates input and inserts a new member. The username is trimmed
// and case-folded before validation so "Alice" and "alice" collide.
func (s *UserService) Create(ctx context.Context, username, email string) (*domain.User, error) {
	username = NormalizeUsername(username)
	if err := s.validateUsername(username); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid address"}
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, username, email, domain.RoleMember)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	return u, err
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// ListPage returns a page of users and the total count. Invalid page values
// fall back to defaults.
func (s *UserService) ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.Repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}
	items, err := s.Repo.ListUsersPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Delete removes the user id on behalf of callerID. Members may only delete
// themselves; admins may delete anyone.
func (s *UserService) Delete(ctx context.Context, callerID, id string) error {
	if strings.TrimSpace(callerID) == "" {
		return ErrUnauthenticated
	}
	caller, err := s.Repo.GetUser(ctx, s.DB, callerID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if caller.ID != id && !caller.IsAdmin() {
		return ErrForbidden
	}

	err = s.Repo.DeleteUser(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Stats returns the user count and latest update time, used for list ETags.
func (s *UserService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return repo.UsersStats(ctx, s.DB)
}

func (s *UserService) validateUsername(u string) error {
	n := len([]rune(u))
	switch {
	case n < s.MinUsernameLen || (s.MaxUsernameLen > 0 && n > s.MaxUsernameLen):
		return &ValidationError{Field: "username", Reason: "length out of range"}
	case !usernameRE.MatchString(u):
		return &ValidationError{Field: "username", Reason: "may only contain a-z, 0-9, '.', '_' and '-'"}
	}
	return nil
}

// NormalizeUsername trims and case-folds a username.
func NormalizeUsername(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
