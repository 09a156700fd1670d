package input

import (
	"testing"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/hotkey"
	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/require"
	xhotkey "golang.design/x/hotkey"
)

type recordingSink struct {
	events []string
}

func (r *recordingSink) Press(k hotkey.Key)   { r.events = append(r.events, "+"+string(k)) }
func (r *recordingSink) Release(k hotkey.Key) { r.events = append(r.events, "-"+string(k)) }

func TestKeycodeTableCoversBothSides(t *testing.T) {
	table := keycodeTable(hotkey.MustParseCombo("ctrl+shift+alt+super"))

	want := map[uint16]hotkey.Key{
		29: hotkey.KeyCtrl, 3613: hotkey.KeyCtrl,
		42: hotkey.KeyShift, 54: hotkey.KeyShift,
		56: hotkey.KeyAlt, 3640: hotkey.KeyAlt,
		3675: hotkey.KeySuper, 3676: hotkey.KeySuper,
	}
	for code, k := range want {
		require.Equal(t, k, table[code], "keycode %d", code)
	}
}

func TestKeycodeTableOnlyHoldsComboKeys(t *testing.T) {
	combo := hotkey.MustParseCombo("ctrl+shift")
	table := keycodeTable(combo)

	require.NotContains(t, table, uint16(56))
	require.NotContains(t, table, uint16(3675))
	for _, k := range table {
		require.True(t, combo.Contains(k))
	}
}

func TestRightCtrlActivatesCombo(t *testing.T) {
	src := NewHookSource(hotkey.MustParseCombo("ctrl+shift"), nil)
	var events []hotkey.EventType
	m := hotkey.NewMachine(hotkey.MustParseCombo("ctrl+shift"), func(ev hotkey.Event) {
		events = append(events, ev.Type)
	})

	src.dispatch(hook.Event{Kind: hook.KeyDown, Keycode: 3613}, m)
	src.dispatch(hook.Event{Kind: hook.KeyDown, Keycode: 54}, m)
	src.dispatch(hook.Event{Kind: hook.KeyUp, Keycode: 3613}, m)

	require.Equal(t, []hotkey.EventType{hotkey.EventStart, hotkey.EventStop}, events)
}

func TestHookDispatch(t *testing.T) {
	src := NewHookSource(hotkey.MustParseCombo("ctrl+shift"), nil)
	sink := &recordingSink{}

	ctrl := hook.Keycode["ctrl"]
	shift := hook.Keycode["shift"]
	other := hook.Keycode["a"]

	src.dispatch(hook.Event{Kind: hook.KeyDown, Keycode: ctrl}, sink)
	src.dispatch(hook.Event{Kind: hook.KeyHold, Keycode: ctrl}, sink)
	src.dispatch(hook.Event{Kind: hook.KeyDown, Keycode: other}, sink)
	src.dispatch(hook.Event{Kind: hook.KeyDown, Keycode: shift}, sink)
	src.dispatch(hook.Event{Kind: hook.KeyUp, Keycode: shift}, sink)

	require.Equal(t, []string{"+ctrl", "+ctrl", "+shift", "-shift"}, sink.events)
}

func TestRegisterCombo(t *testing.T) {
	mods, trigger, key, err := registerCombo(hotkey.MustParseCombo("ctrl+shift+space"))
	require.NoError(t, err)
	require.Equal(t, hotkey.Key("space"), trigger)
	require.Equal(t, xhotkey.KeySpace, key)
	require.ElementsMatch(t, []xhotkey.Modifier{xhotkey.ModCtrl, xhotkey.ModShift}, mods)

	_, _, _, err = registerCombo(hotkey.MustParseCombo("ctrl+shift"))
	require.Error(t, err, "modifier-only combos need the hook source")

	_, _, _, err = registerCombo(hotkey.MustParseCombo("ctrl+pagedown"))
	require.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.HotkeyConfig{Source: config.SourceHook}, hotkey.MustParseCombo("ctrl+shift"), nil)
	require.NoError(t, err)
	require.IsType(t, &HookSource{}, src)

	_, err = NewSource(config.HotkeyConfig{Source: config.SourceRegister}, hotkey.MustParseCombo("ctrl+shift"), nil)
	require.Error(t, err)

	src, err = NewSource(config.HotkeyConfig{Source: config.SourceRegister}, hotkey.MustParseCombo("alt+f9"), nil)
	require.NoError(t, err)
	require.IsType(t, &RegisteredSource{}, src)

	_, err = NewSource(config.HotkeyConfig{Source: "evdev"}, hotkey.MustParseCombo("ctrl+shift"), nil)
	require.Error(t, err)
}
