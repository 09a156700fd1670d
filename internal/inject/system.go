package inject

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// SystemClipboard uses the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Read() (string, error) { return clipboard.ReadAll() }

func (SystemClipboard) Write(text string) error { return clipboard.WriteAll(text) }

// SystemKeyboard sends the paste chord through keybd_event. The key
// bonding is created on first use.
type SystemKeyboard struct {
	once sync.Once
	kb   keybd_event.KeyBonding
	err  error
}

func (k *SystemKeyboard) bonding() (*keybd_event.KeyBonding, error) {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
		if k.err != nil {
			k.err = fmt.Errorf("init keyboard: %w", k.err)
			return
		}
		pasteModifier(&k.kb)
		k.kb.SetKeys(keybd_event.VK_V)
	})
	return &k.kb, k.err
}

func (k *SystemKeyboard) Press() error {
	kb, err := k.bonding()
	if err != nil {
		return err
	}
	return kb.Press()
}

func (k *SystemKeyboard) Release() error {
	kb, err := k.bonding()
	if err != nil {
		return err
	}
	return kb.Release()
}
