// Package errors defines the directory error taxonomy, its HTTP mapping,
// and the classification of arbitrary errors into taxonomy kinds.
package errors

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Kind is the taxonomy type carried in the error envelope.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindAuthentication     Kind = "authentication"
	KindAuthorization      Kind = "authorization"
	KindNotFound           Kind = "not_found"
	KindDuplicate          Kind = "duplicate"
	KindForeignKey         Kind = "foreign_key"
	KindInvalidReference   Kind = "invalid_reference"
	KindConnection         Kind = "connection"
	KindServiceUnavailable Kind = "service_unavailable"
	KindRateLimit          Kind = "rate_limit"
	KindSecurity           Kind = "security"
	KindUnknown            Kind = "unknown"
)

// Severity grades how loudly an error should be treated by operators.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var (
	ErrNotFound     = stderrors.New("not found")
	ErrDuplicate    = stderrors.New("duplicate entry")
	ErrInvalidInput = stderrors.New("invalid input")
	ErrUnavailable  = stderrors.New("service unavailable")
)

// FieldError names a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified error. It wraps an optional cause.
type Error struct {
	Kind     Kind
	Message  string
	Details  []FieldError
	Severity Severity
	cause    error
}

func (err *Error) Error() string {
	if len(err.Details) == 0 {
		return err.Message
	}
	parts := make([]string, 0, len(err.Details))
	for _, d := range err.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return err.Message + ": " + strings.Join(parts, "; ")
}

func (err *Error) Unwrap() error { return err.cause }

// Code returns the envelope code for the error kind.
func (err *Error) Code() string { return CodeFor(err.Kind) }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Severity: SeverityFor(kind), cause: cause}
}

// Validation builds a validation error listing every violated field.
func Validation(fields ...FieldError) *Error {
	err := newError(KindValidation, "Validation failed", ErrInvalidInput)
	err.Details = fields
	return err
}

// NotFound reports a missing resource, e.g. NotFound("Company").
func NotFound(resource string) *Error {
	return newError(KindNotFound, resource+" not found", ErrNotFound)
}

func Duplicate(msg string) *Error {
	return newError(KindDuplicate, msg, ErrDuplicate)
}

func InvalidReference(field, id string) *Error {
	err := newError(KindInvalidReference, "Invalid reference", nil)
	err.Details = []FieldError{{Field: field, Message: fmt.Sprintf("%q does not exist", id)}}
	return err
}

// Unavailable wraps an upstream or connectivity failure.
func Unavailable(msg string, cause error) *Error {
	return newError(KindServiceUnavailable, msg, stderrors.Join(ErrUnavailable, cause))
}

func Unauthorized(msg string) *Error {
	return newError(KindAuthentication, msg, nil)
}

func Forbidden(msg string) *Error {
	return newError(KindAuthorization, msg, nil)
}

func RateLimited(msg string) *Error {
	return newError(KindRateLimit, msg, nil)
}

func Security(msg string) *Error {
	return newError(KindSecurity, msg, nil)
}

// Classify maps any error onto a taxonomy kind.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}

	var netErr net.Error
	switch {
	case stderrors.Is(err, ErrInvalidInput):
		return KindValidation
	case stderrors.Is(err, ErrNotFound), stderrors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrDuplicate), stderrors.Is(err, gorm.ErrDuplicatedKey):
		return KindDuplicate
	case stderrors.Is(err, gorm.ErrForeignKeyViolated):
		return KindForeignKey
	case stderrors.Is(err, ErrUnavailable):
		return KindServiceUnavailable
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, driver.ErrBadConn),
		stderrors.As(err, &netErr):
		return KindConnection
	}
	return KindUnknown
}

// Envelope returns the typed form of err, classifying it when needed.
// Unclassified messages are not exposed to clients.
func Envelope(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	kind := Classify(err)
	msg := "Internal server error"
	switch kind {
	case KindNotFound:
		msg = "Resource not found"
	case KindDuplicate:
		msg = "Resource already exists"
	case KindForeignKey:
		msg = "Invalid reference"
	case KindConnection, KindServiceUnavailable:
		msg = "Service temporarily unavailable"
	case KindValidation:
		msg = err.Error()
	}
	return newError(kind, msg, err)
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindForeignKey, KindInvalidReference:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization, KindSecurity:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindConnection, KindServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// CodeFor maps a kind to its envelope code.
func CodeFor(kind Kind) string {
	switch kind {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindAuthentication:
		return "UNAUTHORIZED"
	case KindAuthorization:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindDuplicate:
		return "DUPLICATE_ENTRY"
	case KindForeignKey, KindInvalidReference:
		return "INVALID_REFERENCE"
	case KindConnection, KindServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case KindRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case KindSecurity:
		return "SECURITY_ERROR"
	}
	return "INTERNAL_ERROR"
}

func SeverityFor(kind Kind) Severity {
	switch kind {
	case KindValidation, KindNotFound:
		return SeverityLow
	case KindAuthentication, KindAuthorization, KindDuplicate,
		KindRateLimit, KindForeignKey, KindInvalidReference:
		return SeverityMedium
	case KindSecurity:
		return SeverityCritical
	}
	return SeverityHigh
}
