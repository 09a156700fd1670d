//go:build windows

package input

import xhotkey "golang.design/x/hotkey"

func modAlt() xhotkey.Modifier {
	return xhotkey.ModAlt
}

func modSuper() xhotkey.Modifier {
	return xhotkey.ModWin
}
