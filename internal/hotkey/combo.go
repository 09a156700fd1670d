// Package hotkey turns raw key press/release notifications into push-to-talk
// session events for a configured key combination.
package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a canonical key identifier. Left/right variants of a modifier
// share one identifier.
type Key string

const (
	KeyCtrl  Key = "ctrl"
	KeyShift Key = "shift"
	KeyAlt   Key = "alt"
	KeySuper Key = "super"
)

var aliases = map[string]Key{
	"ctrl":    KeyCtrl,
	"control": KeyCtrl,
	"ctrl_l":  KeyCtrl,
	"ctrl_r":  KeyCtrl,
	"lctrl":   KeyCtrl,
	"rctrl":   KeyCtrl,
	"shift":   KeyShift,
	"shift_l": KeyShift,
	"shift_r": KeyShift,
	"lshift":  KeyShift,
	"rshift":  KeyShift,
	"alt":     KeyAlt,
	"option":  KeyAlt,
	"alt_l":   KeyAlt,
	"alt_r":   KeyAlt,
	"ralt":    KeyAlt,
	"cmd":     KeySuper,
	"command": KeySuper,
	"super":   KeySuper,
	"win":     KeySuper,
	"meta":    KeySuper,
	"rcmd":    KeySuper,
}

// Normalize maps a key name to its canonical identifier.
func Normalize(name string) Key {
	n := strings.ToLower(strings.TrimSpace(name))
	if k, ok := aliases[n]; ok {
		return k
	}
	switch n {
	case "return":
		return "enter"
	case "esc":
		return "escape"
	}
	return Key(n)
}

// IsModifier reports whether k is one of the modifier keys.
func IsModifier(k Key) bool {
	switch k {
	case KeyCtrl, KeyShift, KeyAlt, KeySuper:
		return true
	}
	return false
}

// Combo is the set of keys that must be held together. Order is irrelevant.
type Combo struct {
	keys map[Key]struct{}
}

// ParseCombo parses a string like "ctrl+shift" or "ctrl+alt+space".
func ParseCombo(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	keys := make(map[Key]struct{}, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return Combo{}, fmt.Errorf("invalid hotkey %q: empty key", s)
		}
		k := Normalize(part)
		if _, dup := keys[k]; dup {
			return Combo{}, fmt.Errorf("invalid hotkey %q: %s listed twice", s, k)
		}
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return Combo{}, fmt.Errorf("empty hotkey string")
	}
	return Combo{keys: keys}, nil
}

// MustParseCombo is ParseCombo for literals known to be valid.
func MustParseCombo(s string) Combo {
	c, err := ParseCombo(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Contains reports whether k is a member of the combo.
func (c Combo) Contains(k Key) bool {
	_, ok := c.keys[k]
	return ok
}

// Keys returns the members in a stable order.
func (c Combo) Keys() []Key {
	out := make([]Key, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len is the number of required keys.
func (c Combo) Len() int { return len(c.keys) }

// Modifiers returns the modifier members.
func (c Combo) Modifiers() []Key {
	var out []Key
	for _, k := range c.Keys() {
		if IsModifier(k) {
			out = append(out, k)
		}
	}
	return out
}

// Trigger returns the single non-modifier member, if any.
func (c Combo) Trigger() (Key, bool) {
	var trigger Key
	n := 0
	for _, k := range c.Keys() {
		if !IsModifier(k) {
			trigger = k
			n++
		}
	}
	return trigger, n == 1
}

func (c Combo) String() string {
	keys := c.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, "+")
}
