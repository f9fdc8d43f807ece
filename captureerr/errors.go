// Package captureerr defines the structured error taxonomy shared by
// every capturecore package: a closed set of Kind values plus an Error
// type that carries a kind, a message, and an optional wrapped cause.
package captureerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can switch on failure category
// without string-matching messages.
type Kind string

const (
	// Device-layer kinds, surfaced to the caller from enumerate/open.
	KindDeviceNotFound   Kind = "device_not_found"
	KindDeviceBusy       Kind = "device_busy"
	KindPermissionDenied Kind = "permission_denied"

	// Format negotiation, returned from open.
	KindFormatUnsupported       Kind = "format_unsupported"
	KindFormatNegotiationFailed Kind = "format_negotiation_failed"

	// Lifecycle kinds.
	KindAlreadyStarted    Kind = "already_started"
	KindAlreadyStopped    Kind = "already_stopped"
	KindAlreadyClosed     Kind = "already_closed"
	KindInvalidTransition Kind = "invalid_transition"
	KindSessionClosed     Kind = "session_closed"

	// Capture-loop kinds. CaptureTimeout is internal-only: capture tasks
	// retry it and it must never reach a session caller.
	KindCaptureTimeout Kind = "capture_timeout"
	KindCaptureFailed  Kind = "capture_failed"

	// Control surface.
	KindUnsupportedControl Kind = "unsupported_control"

	// Track-level degraded states.
	KindAudioFailed  Kind = "audio_failed"
	KindEncodeFailed Kind = "encode_failed"

	// Muxer invariant violations, fatal for the recording.
	KindInvalidTimestamp Kind = "invalid_timestamp"
	KindMissingSPSPPS    Kind = "missing_sps_pps"
	KindAlreadyFinalized Kind = "already_finalized"

	// Shutdown and I/O.
	KindCloseTimedOut Kind = "close_timed_out"
	KindIOError       Kind = "io_error"

	// KindUnsupportedPlatform is returned by real (non-mock) backends
	// that are declared by interface but not implemented on the host
	// platform's build.
	KindUnsupportedPlatform Kind = "unsupported_platform"

	// KindUnsupportedCodec is returned by encoder adapters that have no
	// usable implementation (e.g. AAC, absent a codec library).
	KindUnsupportedCodec Kind = "unsupported_codec"
)

// Error is the structured error type every capturecore package returns
// across its public boundary. It is comparable by Kind via errors.Is
// and unwraps to its cause via errors.As/errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that carries cause in its chain.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, captureerr.New(kind, "")) style kind
// comparisons as well as direct kind sentinels built with New.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of reports the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func Of(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
