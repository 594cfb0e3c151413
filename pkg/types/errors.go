package types

import "errors"

// Kind is the closed error taxonomy used across the control plane.
// Boundary code wraps every error in a *Error carrying one of these kinds
// before it crosses into core logic; request handlers map Kind to a fixed
// HTTP status.
type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindInvalidBucket         Kind = "invalid_bucket"
	KindResourceExhausted     Kind = "resource_exhausted"
	KindLaunchFailed          Kind = "launch_failed"
	KindAttachFailed          Kind = "attach_failed"
	KindNotFound              Kind = "not_found"
	KindTransientProbeFailure Kind = "transient_probe_failure"
	KindStoreUnavailable      Kind = "store_unavailable"
)

// Error is the taxonomy-tagged error wrapper. Use Wrap to construct one;
// use errors.Is against the Kind sentinels below, or errors.As(&*Error) to
// recover the kind and message directly.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, types.ErrNotFound) style matching against the
// sentinel values below, comparing by Kind rather than identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Wrap builds a *Error of the given kind, wrapping cause (which may be nil).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel values for errors.Is matching; only Kind is compared.
var (
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrInvalidBucket         = &Error{Kind: KindInvalidBucket}
	ErrResourceExhausted     = &Error{Kind: KindResourceExhausted}
	ErrLaunchFailed          = &Error{Kind: KindLaunchFailed}
	ErrAttachFailed          = &Error{Kind: KindAttachFailed}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrTransientProbeFailure = &Error{Kind: KindTransientProbeFailure}
	ErrStoreUnavailable      = &Error{Kind: KindStoreUnavailable}
)

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error; returns "" otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
