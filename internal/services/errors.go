// Package services defines the business logic of the user directory.
// This file centralizes service-level error values so that they can be
// returned consistently by service methods and checked by callers.
//
// Translation into HTTP statuses happens in the handler layer through the
// apierror conversion bridge; ValidationError is the one failure that maps
// itself.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-route-errors/internal/apierror"
)

var (
	// ErrUserNotFound indicates that the requested user does not exist or
	// was deleted.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken is returned when creating a user whose folded
	// username is already in use.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUnauthenticated is returned when an operation requires a known
	// caller and none was supplied (or the caller does not exist).
	ErrUnauthenticated = errors.New("caller is not authenticated")

	// ErrForbidden is returned when the caller may not act on the target.
	ErrForbidden = errors.New("caller may not perform this action")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RouteError maps the failure to a 400 whose message names the field.
func (e *ValidationError) RouteError() *apierror.Error[apierror.NoData] {
	return apierror.BadRequest().WithMessage(e.Error())
}

var _ apierror.Converter = (*ValidationError)(nil)
