// Package failure defines the error taxonomy shared by the override engine.
//
// Every failure raised inside the engine carries an explicit Kind at the point
// where it happens. Errors coming from outside (transport messages, agent
// exceptions, wrapped library errors) can be classified after the fact with
// Classify, which falls back to matching on the message text.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies where a failure originated.
type Kind string

const (
	KindCapabilityDenied   Kind = "capability-denied"           // KindCapabilityDenied means the tab URL is not allowed by policy.
	KindChannelUnreachable Kind = "channel-unreachable"         // KindChannelUnreachable means the page agent never answered a probe.
	KindExecutionFailed    Kind = "execution-failed"            // KindExecutionFailed means a page-side read or write failed.
	KindPersistenceFailed  Kind = "registry-persistence-failed" // KindPersistenceFailed means the override list could not be saved.
	KindInvalidInput       Kind = "invalid-input"               // KindInvalidInput means the request was rejected before touching the page.
	KindAuthentication     Kind = "authentication"              // KindAuthentication is only produced by message classification.
	KindRateLimit          Kind = "rate-limit"                  // KindRateLimit is only produced by message classification.
	KindNetwork            Kind = "network"                     // KindNetwork is only produced by message classification.
	KindNotFound           Kind = "not-found"                   // KindNotFound means a referenced entry does not exist.
	KindUnknown            Kind = "unknown"                     // KindUnknown is the fallback when nothing matches.
)

// Error is an engine failure with an explicit origin.
type Error struct {
	// Kind is the taxonomy bucket of the failure.
	Kind Kind

	// Op names the engine operation that failed (e.g. "registry.create").
	Op string

	// Message is the human-readable reason, ready for display.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with no underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err. The message of err becomes the
// reason. Wrap returns nil when err is nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Reason returns the display reason for err without the operation prefix.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}
