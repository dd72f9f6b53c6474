// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - A missing row yields ErrNotFound (gorm.ErrRecordNotFound) unwrapped.
//   - A unique violation on username yields ErrDuplicate.
//   - Any other DB failure is wrapped with github.com/pkg/errors so that it
//     carries a stack trace; errors.Is still matches the driver error.
package repo

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-route-errors/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique constraint rejected the write.
var ErrDuplicate = stderrors.New("duplicate")

// CreateUser inserts a new user with a random UUID and UTC timestamps.
func CreateUser(ctx context.Context, db *gorm.DB, username, email, role string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// GetUser fetches a live user by id.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	return &u, nil
}

// CountUsers returns the number of live users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, errors.Wrap(err, "count users")
}

// ListUsersPage returns a page of users ordered by creation time descending.
// The caller computes offset and limit.
func ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, errors.Wrap(err, "list users")
}

// DeleteUser soft-deletes a user. It returns ErrNotFound when no live row
// matched.
func DeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete user %s", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation recognizes unique-constraint failures. glebarez/sqlite
// often returns plain-text errors for them.
func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
