// Package handlers declares how failures raised below the HTTP layer map to
// route errors.
//
// The bridge below is the single table consulted by fail() for any error a
// handler returns that is not already an apierror value. Anything it does
// not recognize becomes a generic 500 whose public message never includes
// the underlying failure.
//
// Example response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "error": "username already taken",
//	  "username": "alice"
//	}
package handlers

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/tbourn/go-route-errors/internal/apierror"
	"github.com/tbourn/go-route-errors/internal/services"
)

// errBodyTooLarge is the public message for bodies cut off by limitBody.
const errBodyTooLarge = "request body too large"

var bridge = apierror.NewBridge(
	apierror.MapIs(services.ErrUserNotFound, http.StatusNotFound, ""),
	apierror.MapIs(services.ErrUsernameTaken, http.StatusConflict, "username already taken"),
	apierror.MapIs(services.ErrUnauthenticated, http.StatusUnauthorized, ""),
	apierror.MapIs(services.ErrForbidden, http.StatusForbidden, ""),
	apierror.MapIs(gorm.ErrRecordNotFound, http.StatusNotFound, ""),
	apierror.MapIs(context.DeadlineExceeded, http.StatusGatewayTimeout, ""),
	apierror.MapAs(func(*http.MaxBytesError) *apierror.Error[apierror.NoData] {
		return apierror.New(http.StatusRequestEntityTooLarge).WithMessage(errBodyTooLarge)
	}),
)

// isValidation reports whether err carries a services.ValidationError.
func isValidation(err error) (*services.ValidationError, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
