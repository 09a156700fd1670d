// Package input observes OS keyboard events and forwards press/release
// notifications for the push-to-talk combo to a Sink.
package input

import (
	"context"
	"fmt"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/hotkey"
	"go.uber.org/zap"
)

// Sink receives normalized key notifications. *hotkey.Machine satisfies it.
type Sink interface {
	Press(k hotkey.Key)
	Release(k hotkey.Key)
}

// Source delivers key events until ctx is cancelled. Run blocks and must
// never wait on the dictation pipeline.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// NewSource picks the key event source named by hotkey.source.
func NewSource(cfg config.HotkeyConfig, combo hotkey.Combo, logger *zap.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceHook, "":
		return NewHookSource(combo, logger), nil
	case config.SourceRegister:
		return NewRegisteredSource(combo, logger)
	default:
		return nil, fmt.Errorf("unknown hotkey source %q", cfg.Source)
	}
}
