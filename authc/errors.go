package authc

import (
	"errors"
	"fmt"
)

// Kind discriminates authentication failures without resorting
// to an open-ended error hierarchy
type Kind int

const (
	// KindAggregateFailure covers attempts that failed for a reason
	// not named by a more specific kind
	KindAggregateFailure Kind = iota
	// KindUnknownAccount means no realm recognizes the principal
	KindUnknownAccount
	// KindIncorrectCredentials means at least one realm recognized
	// the principal but credential verification failed
	KindIncorrectCredentials
	// KindLockedAccount means a realm reports the account as locked,
	// independent of credential correctness
	KindLockedAccount
	// KindExcessiveAttempts means the failure window for the
	// principal overflowed and the attempt was refused outright
	KindExcessiveAttempts
	// KindRealmUnavailable means a realm faulted instead of
	// returning a definitive verdict
	KindRealmUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnknownAccount:
		return "unknown account"
	case KindIncorrectCredentials:
		return "incorrect credentials"
	case KindLockedAccount:
		return "locked account"
	case KindExcessiveAttempts:
		return "excessive attempts"
	case KindRealmUnavailable:
		return "realm unavailable"
	default:
		return "authentication failure"
	}
}

// An Error is the single discriminated failure surfaced per failed
// attempt. It never carries credential material
type Error struct {
	kind  Kind
	realm string
	cause error
}

var (
	ErrInvalidToken = errors.New("authc: invalid token")

	// ErrStopAttempts is returned by a Strategy callback to halt
	// realm enumeration without failing the attempt
	ErrStopAttempts = errors.New("authc: stop attempts")

	// Kind sentinels for use with errors.Is
	ErrUnknownAccount       = &Error{kind: KindUnknownAccount}
	ErrIncorrectCredentials = &Error{kind: KindIncorrectCredentials}
	ErrLockedAccount        = &Error{kind: KindLockedAccount}
	ErrExcessiveAttempts    = &Error{kind: KindExcessiveAttempts}
	ErrRealmUnavailable     = &Error{kind: KindRealmUnavailable}
	ErrAggregateFailure     = &Error{kind: KindAggregateFailure}
)

// NewError returns an Error of the given kind, optionally naming the
// realm it is attributable to and wrapping an underlying cause
func NewError(kind Kind, realm string, cause error) *Error {
	return &Error{kind: kind, realm: realm, cause: cause}
}

// Kind returns the failure discriminator
func (e *Error) Kind() Kind {
	return e.kind
}

// Realm names the realm the failure is attributable to,
// or empty for cross-cutting failures
func (e *Error) Realm() string {
	return e.realm
}

func (e *Error) Error() string {
	if len(e.realm) == 0 {
		return fmt.Sprintf("authc: %s", e.kind)
	}

	return fmt.Sprintf("authc: %s (realm %s)", e.kind, e.realm)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same kind, so the exported
// kind sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}

	return e.kind == te.kind
}

// External returns the user-facing message for this failure.
// UnknownAccount and IncorrectCredentials collapse into one message
// so callers do not leak account existence; every other kind keeps
// its own wording
func (e *Error) External() string {
	switch e.kind {
	case KindUnknownAccount, KindIncorrectCredentials:
		return "invalid username or password"
	case KindLockedAccount:
		return "account is locked"
	case KindExcessiveAttempts:
		return "too many attempts, try again later"
	default:
		return "authentication failed"
	}
}

// KindOf extracts the failure kind from err, or
// KindAggregateFailure when err is not a discriminated failure
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}

	return KindAggregateFailure
}

// asError coerces an arbitrary error into a discriminated failure,
// wrapping foreign errors as aggregate failures
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return &Error{kind: KindAggregateFailure, cause: err}
}
