package stt

import (
	"errors"
	"fmt"
)

// Kind classifies provider failures.
type Kind int

const (
	// KindNotReady: the local model failed to load
	KindNotReady Kind = iota + 1
	// KindLoading: the local model is still loading
	KindLoading
	// KindUnavailable: the provider is not configured
	KindUnavailable
	// KindPending: the provider is not implemented yet
	KindPending
	// KindProvider: the backend answered with an error status
	KindProvider
	// KindTransport: network or decoding failure
	KindTransport
	// KindInput: the audio could not be used
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not_ready"
	case KindLoading:
		return "loading"
	case KindUnavailable:
		return "unavailable"
	case KindPending:
		return "pending"
	case KindProvider:
		return "provider"
	case KindTransport:
		return "transport"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Error is the only error type providers return.
type Error struct {
	Provider string
	Kind     Kind
	Code     string // backend status code, if any
	Detail   string // backend message or short description
	Hint     string // optional advice shown to the user
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Placeholder is the short diagnostic text that may be injected in place
// of a transcription so the user sees what went wrong.
func (e *Error) Placeholder() string {
	if e.Hint != "" {
		return fmt.Sprintf("(%s Error: %s)", e.Hint, e.Detail)
	}

	switch e.Kind {
	case KindLoading:
		return "(speech model is still loading, try again in a moment)"
	case KindNotReady:
		return fmt.Sprintf("(speech model not ready: %s)", e.cause())
	case KindUnavailable:
		return fmt.Sprintf("(%s not configured: %s)", e.Provider, e.Detail)
	case KindPending:
		return fmt.Sprintf("(%s integration pending, use %s)", e.Provider, e.Detail)
	case KindProvider:
		return fmt.Sprintf("(%s error [%s]: %s)", e.Provider, e.Code, e.Detail)
	case KindInput:
		return fmt.Sprintf("(unusable audio: %s)", e.cause())
	default:
		return fmt.Sprintf("(request error: %s)", e.cause())
	}
}

func (e *Error) cause() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return e.Detail + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Detail
	}
}

// AsError extracts an *Error from err. Other errors are wrapped as
// transport failures of the named provider.
func AsError(provider string, err error) *Error {
	if err == nil {
		return nil
	}
	var sttErr *Error
	if errors.As(err, &sttErr) {
		return sttErr
	}
	return &Error{Provider: provider, Kind: KindTransport, Err: err}
}
