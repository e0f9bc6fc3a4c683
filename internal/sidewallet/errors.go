// Package sidewallet holds the shared data model and the single tagged
// error type used across the ingestion and scoring core.
package sidewallet

import "fmt"

// Kind classifies a core-level failure. Collaborators outside the core
// switch on Kind rather than on error strings.
type Kind string

const (
	KindRPCError        Kind = "rpc_error"
	KindInvalidAddress  Kind = "invalid_address"
	KindParseError      Kind = "parse_error"
	KindStorageError    Kind = "storage_error"
	KindNotFound        Kind = "not_found"
)

// Error is the sum type surfaced by every core component. Callers use
// errors.As to recover the Kind and Reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func RPCError(reason string, err error) *Error {
	return newErr(KindRPCError, reason, err)
}

func InvalidAddress(reason string) *Error {
	return newErr(KindInvalidAddress, reason, nil)
}

func ParseError(reason string, err error) *Error {
	return newErr(KindParseError, reason, err)
}

func StorageError(reason string, err error) *Error {
	return newErr(KindStorageError, reason, err)
}

func NotFound(reason string) *Error {
	return newErr(KindNotFound, reason, nil)
}

// KindOf reports the Kind of err when err is itself a *Error. It does not
// unwrap: a *Error wrapped inside another error reports ("", false).
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
		return e.Kind, true
	}
	return "", false
}
