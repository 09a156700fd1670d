//go:build !darwin

package inject

import "github.com/micmonay/keybd_event"

// Ctrl+V
func pasteModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
