package apierror

import "fmt"

// InternalError is an Error that also carries a payload meant for trusted
// callers. The internal payload I is rendered as an object under the
// "internal_error" key. Only use it on routes where exposing implementation
// detail is intended.
type InternalError[D, I any] struct {
	base     *Error[D]
	internal *I
}

// InternalDetail is the internal payload produced from a raw failure.
type InternalDetail struct {
	// Name is the failure's error string.
	Name string `json:"name"`
	// Debug is the verbose rendering of the failure, including stack traces
	// when the failure carries one.
	Debug string `json:"debug"`
}

// DetailOf describes err as an InternalDetail. A nil err yields a zero value.
func DetailOf(err error) InternalDetail {
	if err == nil {
		return InternalDetail{}
	}
	return InternalDetail{
		Name:  err.Error(),
		Debug: fmt.Sprintf("%+v", err),
	}
}

// ForStatusInternal returns an InternalError for status with the default
// message and no payloads.
func ForStatusInternal[D, I any](status int) *InternalError[D, I] {
	return &InternalError[D, I]{base: ForStatus[D](status)}
}

// Internal promotes e to the internal variant. e must not be used afterwards.
func Internal[I, D any](e *Error[D]) *InternalError[D, I] {
	return &InternalError[D, I]{base: e}
}

// WithMessage overrides the public message.
func (e *InternalError[D, I]) WithMessage(text string) *InternalError[D, I] {
	e.base.WithMessage(text)
	return e
}

// WithData attaches or replaces the public payload.
func (e *InternalError[D, I]) WithData(payload D) *InternalError[D, I] {
	e.base.WithData(payload)
	return e
}

// WithStatus replaces the status.
func (e *InternalError[D, I]) WithStatus(status int) *InternalError[D, I] {
	e.base.WithStatus(status)
	return e
}

// WithCause records the underlying failure.
func (e *InternalError[D, I]) WithCause(err error) *InternalError[D, I] {
	e.base.WithCause(err)
	return e
}

// WithInternalData attaches or replaces the internal payload.
func (e *InternalError[D, I]) WithInternalData(payload I) *InternalError[D, I] {
	e.internal = &payload
	return e
}

// InternalData returns the internal payload and whether one is set.
func (e *InternalError[D, I]) InternalData() (I, bool) {
	if e.internal == nil {
		var zero I
		return zero, false
	}
	return *e.internal, true
}

// Public returns the public part of the error.
func (e *InternalError[D, I]) Public() *Error[D] { return e.base }

func (e *InternalError[D, I]) Status() int { return e.base.Status() }
func (e *InternalError[D, I]) Kind() Kind { return e.base.Kind() }
func (e *InternalError[D, I]) Message() string { return e.base.Message() }
func (e *InternalError[D, I]) Data() (D, bool) { return e.base.Data() }
func (e *InternalError[D, I]) Error() string { return e.base.Error() }
func (e *InternalError[D, I]) Unwrap() error { return e.base.Unwrap() }
