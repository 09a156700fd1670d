package inject

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emmett/murmur/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClipboard struct {
	mu       sync.Mutex
	content  string
	readErr  error
	writeErr func(text string) error
	writes   []string
}

func (c *fakeClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.content, nil
}

func (c *fakeClipboard) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		if err := c.writeErr(text); err != nil {
			return err
		}
	}
	c.writes = append(c.writes, text)
	c.content = text
	return nil
}

type fakeKeyboard struct {
	mu       sync.Mutex
	pressErr error
	events   []string
	clip     *fakeClipboard
	pasted   []string
}

func (k *fakeKeyboard) Press() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.events = append(k.events, "press")
	if k.pressErr != nil {
		return k.pressErr
	}
	if k.clip != nil {
		text, _ := k.clip.Read()
		k.pasted = append(k.pasted, text)
	}
	return nil
}

func (k *fakeKeyboard) Release() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.events = append(k.events, "release")
	return nil
}

func newTestInjector(clip Clipboard, keys Keyboard) *Injector {
	inj := New(config.InjectConfig{SettleDelay: 100 * time.Millisecond, RestoreDelay: 500 * time.Millisecond}, clip, keys, nil)
	inj.sleep = func(time.Duration) {}
	return inj
}

func TestTypeTextPastesAndRestores(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "user data"}
	keys := &fakeKeyboard{clip: clip}
	inj := newTestInjector(clip, keys)

	var slept []time.Duration
	inj.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, inj.TypeText("你好"))
	require.Equal(t, []string{"你好"}, keys.pasted)
	require.Equal(t, []string{"press", "release"}, keys.events)
	require.Equal(t, "user data", clip.content)
	require.Equal(t, []string{"你好", "user data"}, clip.writes)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 500 * time.Millisecond}, slept)
}

func TestTypeTextEmptyIsNoop(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "keep"}
	keys := &fakeKeyboard{}
	require.NoError(t, newTestInjector(clip, keys).TypeText(""))
	require.Empty(t, clip.writes)
	require.Empty(t, keys.events)
}

func TestTypeTextRestoresWhenPasteFails(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "precious"}
	keys := &fakeKeyboard{pressErr: errors.New("no uinput")}
	err := newTestInjector(clip, keys).TypeText("dictated")

	require.Error(t, err)
	require.Contains(t, err.Error(), "no uinput")
	require.Equal(t, "precious", clip.content)
	require.Equal(t, []string{"dictated", "precious"}, clip.writes)
	require.Equal(t, []string{"press", "release"}, keys.events)
}

func TestTypeTextRestoresAfterReadFailureAsEmpty(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{readErr: errors.New("clipboard locked")}
	keys := &fakeKeyboard{}
	require.NoError(t, newTestInjector(clip, keys).TypeText("hello"))
	require.Equal(t, []string{"hello", ""}, clip.writes)
}

func TestTypeTextReportsRestoreFailure(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "old"}
	clip.writeErr = func(text string) error {
		if text == "old" {
			return errors.New("restore denied")
		}
		return nil
	}
	keys := &fakeKeyboard{pressErr: errors.New("paste denied")}

	err := newTestInjector(clip, keys).TypeText("new")
	require.Error(t, err)
	require.Contains(t, err.Error(), "paste denied")
	require.Contains(t, err.Error(), "restore denied")
}

func TestTypeTextWriteFailureStillRestores(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "old"}
	clip.writeErr = func(text string) error {
		if text == "new" {
			return errors.New("write denied")
		}
		return nil
	}
	keys := &fakeKeyboard{}

	err := newTestInjector(clip, keys).TypeText("new")
	require.Error(t, err)
	require.Empty(t, keys.events)
	require.Equal(t, []string{"old"}, clip.writes)
}

// a second call must not start until the first has restored the clipboard
func TestTypeTextSerializesCalls(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{content: "original"}
	keys := &fakeKeyboard{clip: clip}
	inj := newTestInjector(clip, keys)
	inj.sleep = func(time.Duration) { time.Sleep(time.Millisecond) }

	var wg sync.WaitGroup
	for _, text := range []string{"one", "two", "three", "four"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, inj.TypeText(text))
		}()
	}
	wg.Wait()

	require.Equal(t, "original", clip.content)
	require.Len(t, clip.writes, 8)
	// writes alternate text, restore, text, restore
	for i := 1; i < len(clip.writes); i += 2 {
		require.Equal(t, "original", clip.writes[i])
		require.NotEqual(t, "original", clip.writes[i-1])
	}
	require.Len(t, keys.pasted, 4)
}
