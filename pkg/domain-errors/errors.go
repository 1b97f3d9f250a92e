// Package domainerrors defines the typed errors the domain layer returns to
// transports. Codes carry the caller-facing distinction between "you may not
// do this", "this does not exist" and "this is not currently possible";
// collapsing them would lose information a client needs to decide whether to
// retry, re-authenticate, or give up.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	// CodeInvalidInput covers malformed requests: missing fields, values
	// outside allowed ranges, reasons shorter than the minimum.
	CodeInvalidInput Code = "invalid_input"

	// CodeUnauthorized means the caller presented no credentials or invalid
	// ones. Distinct from CodeAccessDenied: re-authenticating may help here.
	CodeUnauthorized Code = "unauthorized"

	// CodeAccessDenied means the actor lacks a permission or an approved
	// subject grant for the operation.
	CodeAccessDenied Code = "access_denied"

	// CodeNotFound means the referenced report or attempt does not exist.
	CodeNotFound Code = "not_found"

	// CodeInvalidState means the operation is not legal in the entity's
	// current status, including duplicate or out-of-order terminal callbacks.
	CodeInvalidState Code = "invalid_state"

	// CodeInternal covers unexpected infrastructure failures. The message is
	// never exposed to clients.
	CodeInternal Code = "internal_error"
)

// Error is the domain error type. Services construct these at guard checks;
// stores return sentinel errors which services translate.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes errors.Is match on code so callers can compare against
// dErrors.New(code, "") style targets.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain error that preserves the underlying cause for
// errors.Is/As chains and logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the code from a domain error, defaulting to CodeInternal
// for anything else.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
