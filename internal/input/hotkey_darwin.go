//go:build darwin

package input

import xhotkey "golang.design/x/hotkey"

// modAlt returns the Option modifier for macOS
func modAlt() xhotkey.Modifier {
	return xhotkey.ModOption
}

// modSuper returns the Command modifier for macOS
func modSuper() xhotkey.Modifier {
	return xhotkey.ModCmd
}
