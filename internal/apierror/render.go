package apierror

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// Reserved keys of the rendered object. They always win over payload fields
// of the same name.
const (
	ErrorKey    = "error"
	InternalKey = "internal_error"
)

// ErrInvalidPayload is returned by Render when a payload does not serialize
// to a JSON object.
var ErrInvalidPayload = errors.New("apierror: payload does not serialize to a JSON object")

// Renderer is implemented by *Error and *InternalError.
type Renderer interface {
	error
	Status() int
	// Render returns the status code and JSON object for the response. The
	// returned status and body are always usable: on a payload fault they are
	// the generic 500 response and the fault is returned as the error.
	Render() (int, map[string]any, error)
}

// ErrorBody documents the smallest rendered object.
type ErrorBody struct {
	// Public, user-safe message
	Error string `json:"error" example:"The resource was not found"`
}

// Render implements Renderer.
func (e *Error[D]) Render() (int, map[string]any, error) {
	body, err := e.body()
	if err != nil {
		return renderFault(err)
	}
	return e.status, body, nil
}

// Render implements Renderer. The internal payload, when set, is rendered
// under InternalKey.
func (e *InternalError[D, I]) Render() (int, map[string]any, error) {
	body, err := e.base.body()
	if err != nil {
		return renderFault(err)
	}
	if e.internal != nil {
		fields, err := toFields(*e.internal)
		if err != nil {
			return renderFault(err)
		}
		body[InternalKey] = fields
	}
	return e.base.status, body, nil
}

func (e *Error[D]) body() (map[string]any, error) {
	body := map[string]any{}
	if e.data != nil {
		fields, err := toFields(*e.data)
		if err != nil {
			return nil, err
		}
		body = fields
	}
	delete(body, InternalKey)
	body[ErrorKey] = e.Message()
	return body, nil
}

// toFields flattens v into its top-level JSON fields. Numbers are kept as
// json.Number so they are written back unchanged.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrInvalidPayload, v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrInvalidPayload, v, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func renderFault(err error) (int, map[string]any, error) {
	return http.StatusInternalServerError, map[string]any{ErrorKey: FallbackMessage}, err
}
