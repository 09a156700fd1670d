//go:build linux

package input

import xhotkey "golang.design/x/hotkey"

// modAlt returns the Alt modifier for Linux (Mod1)
func modAlt() xhotkey.Modifier {
	return xhotkey.Mod1
}

// modSuper returns the Super/Win modifier for Linux (Mod4)
func modSuper() xhotkey.Modifier {
	return xhotkey.Mod4
}
