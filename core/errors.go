package core

import "github.com/pkg/errors"

// ErrIDTaken is returned by repositories when a generated primary key already exists.
// Services generate a new id and try again.
var ErrIDTaken = errors.New("generated id already taken")

// MaxIDAttempts bounds how many ids a service generates for one insert.
const MaxIDAttempts = 3

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// DuplicateError reports a unique-constraint violation on a natural key
// (taxonomy name, mobile number, username).
type DuplicateError struct {
	Field   string
	Message string
}

func NewDuplicateError(field, msg string) error {
	return &DuplicateError{Field: field, Message: msg}
}

func (err DuplicateError) Error() string {
	return err.Message
}

func IsDuplicate(err error) bool {
	_, ok := errors.Cause(err).(*DuplicateError)
	return ok
}

// ExternalServiceError is returned by third-party gateways (SMS, email).
// Callers log it and carry on; it never fails the dependent flow.
type ExternalServiceError struct {
	Service string
	Err     error
}

func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

func (err ExternalServiceError) Error() string {
	if err.Err == nil {
		return err.Service + ": request failed"
	}
	return err.Service + ": " + err.Err.Error()
}

func (err ExternalServiceError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
