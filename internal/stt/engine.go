// Package stt converts finished recordings into text. One Provider is
// selected from configuration at startup; every failure comes back as an
// *Error carrying a Kind and a user-facing placeholder.
package stt

import (
	"context"
	"time"

	"github.com/emmett/murmur/internal/audio"
)

// Result represents a speech recognition result
type Result struct {
	// Provider is the name of the backend that produced the text
	Provider string

	// Text is the recognized text, possibly empty for silence
	Text string

	// Confidence is the recognition confidence (0.0 to 1.0), 0 when unknown
	Confidence float64

	// Latency is how long the provider took
	Latency time.Duration
}

// Provider is a speech-to-text backend.
type Provider interface {
	// Name identifies the provider in logs and history
	Name() string

	// Transcribe converts a finished recording. Any failure is returned
	// as *Error.
	Transcribe(ctx context.Context, c *audio.Container) (Result, error)
}

// LoadState describes provider warm-up.
type LoadState int

const (
	StateLoading LoadState = iota
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Warmer is implemented by providers that load a model in the background.
type Warmer interface {
	State() LoadState
	WaitReady(ctx context.Context) error
}

// StateOf reports the warm-up state of p. Providers without a warm-up
// phase are always ready.
func StateOf(p Provider) LoadState {
	if w, ok := p.(Warmer); ok {
		return w.State()
	}
	return StateReady
}

// WaitReady blocks until p has finished loading, if it loads at all.
func WaitReady(ctx context.Context, p Provider) error {
	if w, ok := p.(Warmer); ok {
		return w.WaitReady(ctx)
	}
	return nil
}
