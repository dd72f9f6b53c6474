package apierror

import (
	"errors"
	"net/http"
)

// Converter is implemented by failures that know their own route error.
// The bridge finds it anywhere in a wrap chain.
type Converter interface {
	RouteError() *Error[NoData]
}

// Mapping converts a failure into a route error, or returns nil when it does
// not recognize the failure.
type Mapping func(err error) *Error[NoData]

// MapIs maps failures matching target (errors.Is) to status. An empty
// message keeps the default message for status.
func MapIs(target error, status int, message string) Mapping {
	return func(err error) *Error[NoData] {
		if !errors.Is(err, target) {
			return nil
		}
		out := New(status)
		if message != "" {
			out.WithMessage(message)
		}
		return out
	}
}

// MapAs maps failures of type T (errors.As) through fn.
func MapAs[T error](fn func(T) *Error[NoData]) Mapping {
	return func(err error) *Error[NoData] {
		var target T
		if !errors.As(err, &target) {
			return nil
		}
		return fn(target)
	}
}

// Bridge turns arbitrary failures into route errors. It is immutable after
// NewBridge returns and safe for concurrent use.
type Bridge struct {
	mappings []Mapping
}

// NewBridge returns a Bridge that consults mappings in order. The first
// non-nil result wins.
func NewBridge(mappings ...Mapping) *Bridge {
	return &Bridge{mappings: append([]Mapping(nil), mappings...)}
}

var defaultBridge = NewBridge()

// FromFailure converts err using the package default bridge, which only
// knows about route errors and Converter implementations.
func FromFailure(err error) *Error[NoData] { return defaultBridge.FromFailure(err) }

// FromFailureInternal is FromFailure plus an InternalDetail of err.
func FromFailureInternal(err error) *InternalError[NoData, InternalDetail] {
	return defaultBridge.FromFailureInternal(err)
}

// Resolve returns the route error found in err's chain, or converts err with
// the package default bridge.
func Resolve(err error) Renderer { return defaultBridge.Resolve(err) }

// FromFailure converts err into a route error. Lookup order:
//  1. a payload-less route error already in the chain
//  2. a Converter in the chain
//  3. the registered mappings
//  4. 500 with err kept as the cause
//
// It never fails: a nil err, a mapping returning nil, or a panicking mapping
// all end in step 4.
func (b *Bridge) FromFailure(err error) (out *Error[NoData]) {
	defer func() {
		if recover() != nil {
			out = InternalServer().WithCause(err)
		}
	}()
	if err == nil {
		return InternalServer()
	}

	var existing *Error[NoData]
	if errors.As(err, &existing) && existing != nil {
		return existing
	}

	var conv Converter
	if errors.As(err, &conv) {
		if mapped := conv.RouteError(); mapped != nil {
			return withDefaultCause(mapped, err)
		}
	}

	if b != nil {
		for _, m := range b.mappings {
			if mapped := m(err); mapped != nil {
				return withDefaultCause(mapped, err)
			}
		}
	}
	return New(http.StatusInternalServerError).WithCause(err)
}

// FromFailureInternal converts err like FromFailure and attaches an
// InternalDetail describing it.
func (b *Bridge) FromFailureInternal(err error) *InternalError[NoData, InternalDetail] {
	out := Internal[InternalDetail](b.FromFailure(err))
	if err != nil {
		out.WithInternalData(DetailOf(err))
	}
	return out
}

// Resolve returns the Renderer found in err's chain as is, otherwise the
// result of FromFailure.
func (b *Bridge) Resolve(err error) Renderer {
	var r Renderer
	if err != nil && errors.As(err, &r) {
		return r
	}
	return b.FromFailure(err)
}

// ResolveInternal is Resolve for trusted routes: failures that are not
// already route errors render with an InternalDetail.
func (b *Bridge) ResolveInternal(err error) Renderer {
	var r Renderer
	if err != nil && errors.As(err, &r) {
		return r
	}
	return b.FromFailureInternal(err)
}

func withDefaultCause(e *Error[NoData], err error) *Error[NoData] {
	if e.cause == nil {
		e.cause = err
	}
	return e
}
