package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a transport failure.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindServerError  Kind = "server_error"
	KindOther        Kind = "other"
)

// Error is returned for any request that did not produce a 2xx response.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when the request never reached the service.
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("transport %s: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("transport %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("transport %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
}

// Unwrap returns the underlying connection error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or "" if err is not a transport error.
func KindOf(err error) Kind {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	return ""
}

// IsRateLimited reports whether err is a rate-limit response.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// classifyStatus maps an HTTP status code onto a Kind.
func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServerError
	default:
		return KindOther
	}
}

// errorBody is the error envelope the service uses. Both spellings show up
// depending on which gateway produced the response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// newStatusError builds an *Error from a non-2xx response.
func newStatusError(code int, status string, body []byte) *Error {
	msg := ""
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		msg = eb.Message
		if msg == "" {
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = status
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &Error{Kind: classifyStatus(code), StatusCode: code, Message: msg}
}
