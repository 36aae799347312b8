// Package apperr is the error type shared by services, middleware and the
// HTTP error handler. Kind decides the response, Reason is for logs only.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindAuthentication   Kind = "AuthenticationError"
	KindAuthorization    Kind = "AuthorizationError"
	KindValidation       Kind = "ValidationError"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindServer           Kind = "ServerError"
)

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code is the value of the "code" field clients see. Store outages are
// reported as plain server errors.
func (k Kind) Code() string {
	if k == KindStoreUnavailable {
		return string(KindServer)
	}
	return string(k)
}

type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Fields  map[string]string
	Err     error
}

var (
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrAuthorization    = &Error{Kind: KindAuthorization}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrServer           = &Error{Kind: KindServer}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func New(kind Kind, reason, message string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Err: err}
}

func Authentication(reason, message string, err error) *Error {
	return New(KindAuthentication, reason, message, err)
}

func Authorization(reason, message string) *Error {
	return New(KindAuthorization, reason, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "not_found", message, nil)
}

func StoreUnavailable(err error) *Error {
	return New(KindStoreUnavailable, "store_unavailable", "Internal server error", err)
}

func Server(err error) *Error {
	return New(KindServer, "unexpected", "Internal server error", err)
}

func Validation(message string, fields map[string]string) *Error {
	e := New(KindValidation, "invalid_input", message, nil)
	e.Fields = fields
	return e
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, ServerError for anything unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindServer
}
