package input

import (
	"context"
	"fmt"

	"github.com/emmett/murmur/internal/hotkey"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
	xhotkey "golang.design/x/hotkey"
)

// RegisteredSource uses an OS registered global hotkey. The OS reports the
// whole combo going down and up, so the combo needs exactly one
// non-modifier trigger key.
type RegisteredSource struct {
	combo   hotkey.Combo
	trigger hotkey.Key
	mods    []xhotkey.Modifier
	key     xhotkey.Key
	logger  *zap.Logger
}

// NewRegisteredSource validates combo and maps it onto x/hotkey values.
func NewRegisteredSource(combo hotkey.Combo, logger *zap.Logger) (*RegisteredSource, error) {
	mods, trigger, key, err := registerCombo(combo)
	if err != nil {
		return nil, fmt.Errorf("invalid hotkey: %w", err)
	}
	return &RegisteredSource{
		combo:   combo,
		trigger: trigger,
		mods:    mods,
		key:     key,
		logger:  logging.OrNop(logger),
	}, nil
}

// Run registers the hotkey and forwards down/up until ctx is done.
func (s *RegisteredSource) Run(ctx context.Context, sink Sink) error {
	hk := xhotkey.New(s.mods, s.key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}
	defer func() {
		if err := hk.Unregister(); err != nil {
			s.logger.Warn("failed to unregister hotkey", zap.Error(err))
		}
	}()

	s.logger.Debug("hotkey registered", zap.Stringer("combo", s.combo))

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-hk.Keydown():
			if !ok {
				return nil
			}
			for _, k := range s.combo.Keys() {
				sink.Press(k)
			}
		case _, ok := <-hk.Keyup():
			if !ok {
				return nil
			}
			sink.Release(s.trigger)
			for _, k := range s.combo.Modifiers() {
				sink.Release(k)
			}
		}
	}
}

func registerCombo(combo hotkey.Combo) ([]xhotkey.Modifier, hotkey.Key, xhotkey.Key, error) {
	trigger, ok := combo.Trigger()
	if !ok {
		return nil, "", 0, fmt.Errorf("%q needs exactly one non-modifier key for a registered hotkey", combo)
	}

	key, ok := registerKeys[trigger]
	if !ok {
		return nil, "", 0, fmt.Errorf("unknown key: %s", trigger)
	}

	var mods []xhotkey.Modifier
	for _, m := range combo.Modifiers() {
		switch m {
		case hotkey.KeyCtrl:
			mods = append(mods, xhotkey.ModCtrl)
		case hotkey.KeyShift:
			mods = append(mods, xhotkey.ModShift)
		case hotkey.KeyAlt:
			mods = append(mods, modAlt())
		case hotkey.KeySuper:
			mods = append(mods, modSuper())
		}
	}
	return mods, trigger, key, nil
}

var registerKeys = map[hotkey.Key]xhotkey.Key{
	"space": xhotkey.KeySpace, "enter": xhotkey.KeyReturn, "tab": xhotkey.KeyTab, "escape": xhotkey.KeyEscape,
	"a": xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC, "d": xhotkey.KeyD, "e": xhotkey.KeyE,
	"f": xhotkey.KeyF, "g": xhotkey.KeyG, "h": xhotkey.KeyH, "i": xhotkey.KeyI, "j": xhotkey.KeyJ,
	"k": xhotkey.KeyK, "l": xhotkey.KeyL, "m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO,
	"p": xhotkey.KeyP, "q": xhotkey.KeyQ, "r": xhotkey.KeyR, "s": xhotkey.KeyS, "t": xhotkey.KeyT,
	"u": xhotkey.KeyU, "v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX, "y": xhotkey.KeyY,
	"z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2, "3": xhotkey.Key3, "4": xhotkey.Key4,
	"5": xhotkey.Key5, "6": xhotkey.Key6, "7": xhotkey.Key7, "8": xhotkey.Key8, "9": xhotkey.Key9,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3, "f4": xhotkey.KeyF4,
	"f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6, "f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8,
	"f9": xhotkey.KeyF9, "f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
}
