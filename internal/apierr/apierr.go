// Package apierr defines the error taxonomy shared by the session, the
// request pipeline and the collection stores.
//
// Callers match categories with errors.Is against the sentinels:
//
//	if errors.Is(err, apierr.ErrSessionExpired) { ... }
//
// and extract details with errors.As:
//
//	var apiErr *apierr.Error
//	if errors.As(err, &apiErr) && apiErr.Kind == apierr.KindValidation { ... }
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Kind classifies a failure.
type Kind int

const (
	// KindTransient is a network failure or a 408/429/5xx response.
	KindTransient Kind = iota

	// KindValidation is a 4xx response other than 401, or a payload
	// rejected locally before any request was sent.
	KindValidation

	// KindUnauthorized is a 401 the pipeline could not recover from.
	KindUnauthorized

	// KindAuthentication is a rejected login.
	KindAuthentication

	// KindSessionExpired means the session was force-ended (refresh or
	// profile failure, or a logout while the request was in flight).
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindAuthentication:
		return "authentication"
	case KindSessionExpired:
		return "session expired"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrTransient      = errors.New("request failed")
	ErrValidation     = errors.New("request rejected")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrAuthentication = errors.New("invalid credentials")
	ErrSessionExpired = errors.New("session expired")
)

func sentinel(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindUnauthorized:
		return ErrUnauthorized
	case KindAuthentication:
		return ErrAuthentication
	case KindSessionExpired:
		return ErrSessionExpired
	default:
		return ErrTransient
	}
}

// Error is a classified failure.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Op names the operation, e.g. "GET /tasks/tasks/".
	Op string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Body is the raw response body, kept verbatim for form feedback.
	Body string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	msg := sentinel(e.Kind).Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s (%d): %s", msg, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s (%d)", msg, e.Status)
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == sentinel(e.Kind)
}

// Fields decodes a DRF-style validation body ({"field": ["message", ...]}).
// Returns nil when the body has another shape.
func (e *Error) Fields() map[string][]string {
	if e.Body == "" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.Body), &raw); err != nil {
		return nil
	}
	fields := make(map[string][]string, len(raw))
	for name, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[name] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[name] = []string{single}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// New builds an *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transient wraps a transport failure.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// SessionExpired wraps the cause of a forced session end. An error that
// already is a SessionExpired is returned unchanged.
func SessionExpired(op string, err error) error {
	if errors.Is(err, ErrSessionExpired) {
		return err
	}
	return &Error{Kind: KindSessionExpired, Op: op, Err: err}
}

// FromResponse classifies a non-2xx response checked by googleapi.
func FromResponse(op string, gerr *googleapi.Error) *Error {
	return &Error{
		Kind:   KindFromStatus(gerr.Code),
		Op:     op,
		Status: gerr.Code,
		Body:   gerr.Body,
		Err:    gerr,
	}
}

// KindFromStatus maps an HTTP status code to a Kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindTransient
	case status >= 500:
		return KindTransient
	case status >= 400:
		return KindValidation
	}
	return KindTransient
}

// IsUnauthorized reports whether err is an unrecovered 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// KindOf returns the Kind of err, or KindTransient when err is not classified.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}
