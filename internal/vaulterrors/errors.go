// Package vaulterrors defines the single error type shared across the vault
// core, replacing the teacher corpus's per-crate derive-macro error enums
// with one sum-type carrying a machine-checkable Kind plus a user-facing
// message distinct from its debug string.
package vaulterrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the vault core's error categories.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindApiError        Kind = "api_error"
	KindUnauthenticated Kind = "unauthenticated"
	KindInvalidPassword Kind = "invalid_password"
	KindRepoLocked      Kind = "repo_locked"
	KindRepoNotFound    Kind = "repo_not_found"
	KindDecryptFilename Kind = "decrypt_filename"
	KindDecryptContent  Kind = "decrypt_content"
	KindInvalidPath     Kind = "invalid_path"
	KindConflict        Kind = "conflict"
	KindAborted         Kind = "aborted"
	KindStorePoisoned   Kind = "store_poisoned"
	KindSecureStorage   Kind = "secure_storage"
)

// Error is the vault core's single error type. Every component returns this
// type (or wraps one) rather than inventing a per-package error enum.
type Error struct {
	Kind Kind

	// Code and Message carry the remote API's reported error code/message
	// when Kind == KindApiError.
	Code    string
	Message string
	Extra   map[string]string

	// RequestId correlates an ApiError back to the originating remote call.
	RequestId string

	// Retriable marks a KindNetwork error as safe to retry.
	Retriable bool

	// cause is the underlying error, if any, wrapped for debugging only —
	// never surfaced to the user.
	cause error
}

// New constructs an Error of the given kind with a debug message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Network constructs a KindNetwork error, flagged retriable or not.
func Network(cause error, retriable bool) *Error {
	return &Error{Kind: KindNetwork, cause: cause, Retriable: retriable}
}

// ApiError constructs a KindApiError error mirroring the remote's
// {error:{code,message,extra},requestId} envelope.
func ApiError(code, message, requestId string, extra map[string]string) *Error {
	return &Error{Kind: KindApiError, Code: code, Message: message, Extra: extra, RequestId: requestId}
}

// Error implements the error interface with a debug-oriented representation.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Kind == KindApiError:
		return fmt.Sprintf("%s: %s (code=%s requestId=%s)", e.Kind, e.Message, e.Code, e.RequestId)
	case e.cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target shares this error's Kind, allowing
// errors.Is(err, vaulterrors.New(vaulterrors.KindConflict, "")) style checks.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok || other == nil || e == nil {
		return false
	}
	return e.Kind == other.Kind
}

// UserMessage returns the message appropriate for display in the
// notifications slice — distinct from Error()'s debug representation.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindNetwork:
		return "A network error occurred. Please check your connection and try again."
	case KindApiError:
		if e.Message != "" {
			return e.Message
		}
		return "The server reported an error."
	case KindUnauthenticated:
		return "Your session has expired. Please sign in again."
	case KindInvalidPassword:
		return "The password you entered is incorrect."
	case KindRepoLocked:
		return "This vault is locked."
	case KindRepoNotFound:
		return "This vault could not be found."
	case KindDecryptFilename:
		return "A file name could not be decrypted."
	case KindDecryptContent:
		return "A file's contents could not be decrypted."
	case KindInvalidPath:
		return "The path is invalid."
	case KindConflict:
		return "A conflicting change was made to this item."
	case KindAborted:
		return "The operation was cancelled."
	case KindStorePoisoned:
		return "An internal error occurred. Please restart the application."
	case KindSecureStorage:
		return "Secure storage is unavailable."
	default:
		return "An unexpected error occurred."
	}
}

// Of extracts the vault error from err if it is one (or wraps one),
// otherwise reports ok=false.
func Of(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// KindOf reports err's Kind, or "" if err is not a *Error.
func KindOf(err error) Kind {
	if ve, ok := Of(err); ok {
		return ve.Kind
	}
	return ""
}
