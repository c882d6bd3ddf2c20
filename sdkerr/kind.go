// Package sdkerr defines the closed error-kind taxonomy shared by every SDK
// client in this module and maps it onto github.com/goliatone/go-errors, the
// same categorized-error library the rest of the codebase builds on.
package sdkerr

import (
	"context"
	"errors"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Kind is the closed set of failure classes every client-facing error belongs to.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindRateLimit      Kind = "rate_limit"
	KindConflict       Kind = "conflict"
	KindServer         Kind = "server"
	KindNetwork        Kind = "network"
	KindTimeout        Kind = "timeout"
	KindStream         Kind = "stream"
	KindCircuitOpen    Kind = "circuit_open"
	KindProtocol       Kind = "protocol"
	KindSerialization  Kind = "serialization"
	KindStorage        Kind = "storage"
	KindCancelled      Kind = "cancelled"
)

// textCode is the stable machine-readable code carried on the wire envelope.
func (k Kind) textCode() string {
	return "SDK_" + string(k)
}

func (k Kind) category() goerrors.Category {
	switch k {
	case KindConfiguration, KindValidation, KindProtocol:
		return goerrors.CategoryBadInput
	case KindAuthentication:
		return goerrors.CategoryAuth
	case KindNotFound:
		return goerrors.CategoryNotFound
	case KindConflict:
		return goerrors.CategoryConflict
	case KindRateLimit:
		return goerrors.CategoryRateLimit
	case KindServer:
		return goerrors.CategoryOperation
	case KindNetwork, KindTimeout, KindStream, KindCircuitOpen:
		return goerrors.CategoryExternal
	case KindSerialization, KindStorage, KindCancelled:
		return goerrors.CategoryInternal
	default:
		return goerrors.CategoryInternal
	}
}

// Error is an sdkerr-flavored wrapper over *goerrors.Error. It is never
// constructed directly by callers; use New, Wrap, or Classify.
type Error struct {
	inner *goerrors.Error

	Kind       Kind
	Status     int
	RetryAfter *time.Duration
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e == nil || e.inner == nil {
		return ""
	}
	return e.inner.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsGoError exposes the underlying *goerrors.Error for callers that want the
// HTTP-shaped Code/TextCode/Metadata envelope (logging, API responses).
func (e *Error) AsGoError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return e.inner
}

// New builds an sdkerr.Error of the given kind with a safe-to-surface message.
func New(kind Kind, message string) *Error {
	return build(kind, message, nil, 0, nil)
}

// Wrap attaches a kind and message to an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return build(kind, message, cause, 0, nil)
}

// WithStatus sets the originating HTTP status code, if any.
func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return e
	}
	e.Status = status
	if e.inner != nil {
		e.inner.WithCode(status)
	}
	return e
}

// WithRetryAfter records a server-supplied retry hint.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	if e == nil {
		return e
	}
	e.RetryAfter = &d
	if e.inner != nil {
		e.inner.WithMetadata(map[string]any{"retry_after_ms": d.Milliseconds()})
	}
	return e
}

// WithMetadata attaches non-secret diagnostic metadata.
func (e *Error) WithMetadata(metadata map[string]any) *Error {
	if e == nil || len(metadata) == 0 {
		return e
	}
	if e.inner != nil {
		e.inner.WithMetadata(metadata)
	}
	return e
}

func build(kind Kind, message string, cause error, status int, retryAfter *time.Duration) *Error {
	var inner *goerrors.Error
	if cause != nil {
		inner = goerrors.Wrap(cause, kind.category(), message)
	} else {
		inner = goerrors.New(message, kind.category())
	}
	inner.WithTextCode(kind.textCode())
	if status != 0 {
		inner.WithCode(status)
	}
	return &Error{
		inner:      inner,
		Kind:       kind,
		Status:     status,
		RetryAfter: retryAfter,
		Retryable:  Retryable(kind, status),
		Cause:      cause,
	}
}

// Retryable reports whether a failure of this kind (and, for HTTP-carrying
// kinds, this status) should be retried by the retry executor. circuit_open
// is deliberately excluded: a tripped breaker is a terminal decision for the
// attempt loop even though the orchestrator itself may be retried externally.
func Retryable(kind Kind, status int) bool {
	switch kind {
	case KindNetwork, KindTimeout, KindRateLimit, KindServer:
		return status != http.StatusNotImplemented && status != 505
	default:
		return false
	}
}

// As reports whether err (or one of its wrapped causes) is an *sdkerr.Error,
// writing it into target on success - the sdkerr analogue of errors.As.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// FromContext classifies a context error (Canceled/DeadlineExceeded) into the
// matching sdkerr Kind, or returns nil if ctx carries no error.
func FromContext(ctx context.Context) *Error {
	if ctx == nil {
		return nil
	}
	switch ctx.Err() {
	case context.Canceled:
		return New(KindCancelled, "request cancelled")
	case context.DeadlineExceeded:
		return New(KindTimeout, "request deadline exceeded")
	default:
		return nil
	}
}
