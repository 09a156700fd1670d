package input

import (
	"context"

	"github.com/emmett/murmur/internal/hotkey"
	"github.com/emmett/murmur/internal/logging"
	hook "github.com/robotn/gohook"
	"go.uber.org/zap"
)

// HookSource reads the global low-level keyboard hook. Unlike a registered
// hotkey it sees individual modifier presses, so modifier-only combos such
// as ctrl+shift work.
type HookSource struct {
	combo  hotkey.Combo
	logger *zap.Logger
	codes  map[uint16]hotkey.Key
}

// NewHookSource creates a hook based source for combo.
func NewHookSource(combo hotkey.Combo, logger *zap.Logger) *HookSource {
	return &HookSource{
		combo:  combo,
		logger: logging.OrNop(logger),
		codes:  keycodeTable(combo),
	}
}

// modifierCodes lists the libuiohook codes of both sides of each modifier.
// hook.Keycode lacks some right-side entries, right ctrl among them.
var modifierCodes = map[uint16]hotkey.Key{
	29:   hotkey.KeyCtrl,
	3613: hotkey.KeyCtrl,
	42:   hotkey.KeyShift,
	54:   hotkey.KeyShift,
	56:   hotkey.KeyAlt,
	3640: hotkey.KeyAlt,
	3675: hotkey.KeySuper,
	3676: hotkey.KeySuper,
}

// keycodeTable maps gohook keycodes of combo members, including their
// left/right variants, to canonical keys.
func keycodeTable(combo hotkey.Combo) map[uint16]hotkey.Key {
	table := make(map[uint16]hotkey.Key)
	for name, code := range hook.Keycode {
		k := hotkey.Normalize(name)
		if combo.Contains(k) {
			table[code] = k
		}
	}
	for code, k := range modifierCodes {
		if combo.Contains(k) {
			table[code] = k
		}
	}
	return table
}

// Run starts the hook and blocks until ctx is done or the hook closes.
func (s *HookSource) Run(ctx context.Context, sink Sink) error {
	events := hook.Start()
	defer hook.End()

	s.logger.Debug("keyboard hook started", zap.Stringer("combo", s.combo))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.dispatch(ev, sink)
		}
	}
}

func (s *HookSource) dispatch(ev hook.Event, sink Sink) {
	k, known := s.codes[ev.Keycode]
	if !known {
		return
	}

	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		// held keys re-deliver KeyHold; the state machine ignores repeats
		sink.Press(k)
	case hook.KeyUp:
		sink.Release(k)
	}
}
