// Package inject delivers text into the focused application by swapping
// it through the clipboard and simulating a paste.
package inject

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// Keyboard simulates the platform paste chord.
type Keyboard interface {
	Press() error
	Release() error
}

// Injector pastes text. Calls are serialized because the clipboard is
// shared by the whole desktop session.
type Injector struct {
	mu     sync.Mutex
	clip   Clipboard
	keys   Keyboard
	settle time.Duration
	linger time.Duration
	sleep  func(time.Duration)
	logger *zap.Logger
}

// New creates an injector using the timings from cfg.
func New(cfg config.InjectConfig, clip Clipboard, keys Keyboard, logger *zap.Logger) *Injector {
	return &Injector{
		clip:   clip,
		keys:   keys,
		settle: cfg.SettleDelay,
		linger: cfg.RestoreDelay,
		sleep:  time.Sleep,
		logger: logging.OrNop(logger),
	}
}

// TypeText pastes text into the focused window. The previous clipboard
// content is restored exactly once before TypeText returns, whether or
// not the paste succeeded. Empty text is a no-op.
func (i *Injector) TypeText(text string) (err error) {
	if text == "" {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	snapshot, readErr := i.clip.Read()
	if readErr != nil {
		i.logger.Warn("clipboard read failed, restoring empty clipboard", zap.Error(readErr))
		snapshot = ""
	}

	defer func() {
		if restoreErr := i.clip.Write(snapshot); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore clipboard: %w", restoreErr))
		}
	}()

	if err := i.clip.Write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	i.sleep(i.settle)

	if err := i.paste(); err != nil {
		return err
	}
	i.logger.Debug("paste sent", zap.Int("chars", len([]rune(text))))

	// let the target application read the clipboard before it changes back
	i.sleep(i.linger)
	return nil
}

func (i *Injector) paste() error {
	pressErr := i.keys.Press()
	// release even after a failed press so no modifier stays stuck
	releaseErr := i.keys.Release()
	if pressErr != nil || releaseErr != nil {
		return fmt.Errorf("simulate paste: %w", errors.Join(pressErr, releaseErr))
	}
	return nil
}
