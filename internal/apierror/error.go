package apierror

import "net/http"

// NoData is the payload type of errors that carry no structured payload.
type NoData struct{}

// Error is the canonical route error. D is the payload type; its fields are
// merged into the top level of the rendered JSON object, so it must serialize
// to an object (a struct or a string-keyed map).
//
// An Error is built and rendered within a single request and is not safe for
// concurrent mutation. Setters modify the receiver and return it for chaining.
type Error[D any] struct {
	status  int
	message *string
	data    *D
	cause   error
}

// ForStatus returns an Error for status with the default message and no
// payload. A status outside the HTTP range is coerced to 500.
func ForStatus[D any](status int) *Error[D] {
	if !ValidStatus(status) {
		status = http.StatusInternalServerError
	}
	return &Error[D]{status: status}
}

// New returns a payload-less Error for status.
func New(status int) *Error[NoData] { return ForStatus[NoData](status) }

// BadRequest returns a 400 error.
func BadRequest() *Error[NoData] { return New(http.StatusBadRequest) }

// Unauthorized returns a 401 error.
func Unauthorized() *Error[NoData] { return New(http.StatusUnauthorized) }

// Forbidden returns a 403 error.
func Forbidden() *Error[NoData] { return New(http.StatusForbidden) }

// NotFound returns a 404 error.
func NotFound() *Error[NoData] { return New(http.StatusNotFound) }

// Conflict returns a 409 error.
func Conflict() *Error[NoData] { return New(http.StatusConflict) }

// Unprocessable returns a 422 error.
func Unprocessable() *Error[NoData] { return New(http.StatusUnprocessableEntity) }

// TooManyRequests returns a 429 error.
func TooManyRequests() *Error[NoData] { return New(http.StatusTooManyRequests) }

// InternalServer returns a 500 error.
func InternalServer() *Error[NoData] { return New(http.StatusInternalServerError) }

// WithMessage overrides the public message. The status is unchanged.
func (e *Error[D]) WithMessage(text string) *Error[D] {
	e.message = &text
	return e
}

// WithData attaches or replaces the payload.
func (e *Error[D]) WithData(payload D) *Error[D] {
	e.data = &payload
	return e
}

// WithStatus replaces the status. A status outside the HTTP range is coerced
// to 500.
func (e *Error[D]) WithStatus(status int) *Error[D] {
	if !ValidStatus(status) {
		status = http.StatusInternalServerError
	}
	e.status = status
	return e
}

// WithCause records the underlying failure. The cause is available through
// Unwrap for logging but is never rendered.
func (e *Error[D]) WithCause(err error) *Error[D] {
	e.cause = err
	return e
}

// Attach returns a copy of e whose payload type is N, carrying payload.
// Status, message override and cause are preserved.
func Attach[N, D any](e *Error[D], payload N) *Error[N] {
	return &Error[N]{
		status:  e.status,
		message: e.message,
		data:    &payload,
		cause:   e.cause,
	}
}

// Status returns the HTTP status code.
func (e *Error[D]) Status() int { return e.status }

// Kind returns the fault family of the status.
func (e *Error[D]) Kind() Kind { return KindOf(e.status) }

// Message returns the effective public message: the override when set,
// otherwise the policy default for the status.
func (e *Error[D]) Message() string {
	if e.message != nil {
		return *e.message
	}
	return DefaultMessage(e.status)
}

// Data returns the payload and whether one is set.
func (e *Error[D]) Data() (D, bool) {
	if e.data == nil {
		var zero D
		return zero, false
	}
	return *e.data, true
}

// Error implements error with the public message.
func (e *Error[D]) Error() string { return e.Message() }

// Unwrap returns the cause recorded with WithCause.
func (e *Error[D]) Unwrap() error { return e.cause }
