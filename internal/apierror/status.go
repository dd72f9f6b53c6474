// Package apierror defines the canonical error shape returned by every HTTP
// endpoint: a status code, a user-safe message, and an optional structured
// payload whose fields are flattened next to the reserved "error" key.
//
// The package is framework-agnostic and side-effect free. It never logs,
// never retries and never touches request state; the HTTP boundary decides
// what to do with an error after it has been rendered.
//
// Example response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": "The resource was not found",
//	  "username": "alice"
//	}
package apierror

import "net/http"

// FallbackMessage is used for any status that has no entry in the policy table.
const FallbackMessage = "An unexpected error occurred"

// defaultMessages maps status codes to their public message. Read-only after
// package initialization.
var defaultMessages = map[int]string{
	http.StatusBadRequest:          "The request was invalid",
	http.StatusUnauthorized:        "Authentication is required",
	http.StatusForbidden:           "You do not have permission to perform this action",
	http.StatusNotFound:            "The resource was not found",
	http.StatusMethodNotAllowed:    "The method is not allowed for this resource",
	http.StatusConflict:            "A conflict occurred",
	http.StatusUnprocessableEntity: "The request could not be processed",
	http.StatusTooManyRequests:     "Too many requests were made",
	http.StatusInternalServerError: FallbackMessage,
	http.StatusBadGateway:          "An upstream service failed",
	http.StatusServiceUnavailable:  "The service is temporarily unavailable",
	http.StatusGatewayTimeout:      "An upstream service timed out",
}

// DefaultMessage returns the public message for status, or FallbackMessage
// when the status is not in the policy table.
func DefaultMessage(status int) string {
	if msg, ok := defaultMessages[status]; ok {
		return msg
	}
	return FallbackMessage
}

// ValidStatus reports whether status lies in the HTTP status code range.
func ValidStatus(status int) bool {
	return status >= 100 && status <= 599
}

// Kind classifies an error by the family of its status code.
type Kind string

const (
	// ClientFault covers the 4xx family.
	ClientFault Kind = "client"
	// ServerFault covers the 5xx family.
	ServerFault Kind = "server"
	// CustomFault is any status outside 400..599 set explicitly by calling
	// code, such as a 3xx.
	CustomFault Kind = "custom"
)

// KindOf classifies status by family. Statuses missing from the message
// table still get their family's kind; only the message falls back.
func KindOf(status int) Kind {
	switch {
	case status >= 400 && status < 500:
		return ClientFault
	case status >= 500 && status < 600:
		return ServerFault
	}
	return CustomFault
}
