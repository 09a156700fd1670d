package audio

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ringOpener hands out ring buffers preloaded with audio. A RingBuffer
// behaves like a live stream: Read blocks until Close, then drains.
type ringOpener struct {
	mu      sync.Mutex
	opens   int
	preload []byte
	err     error
	last    *RingBuffer
}

func (o *ringOpener) Open(cfg CaptureConfig) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.opens++
	rb := NewRingBuffer(1 << 20)
	if len(o.preload) > 0 {
		if _, err := rb.Write(o.preload); err != nil {
			return nil, err
		}
	}
	o.last = rb
	return rb, nil
}

// failingStream returns data once and then a read error.
type failingStream struct {
	data []byte
	sent bool
}

func (f *failingStream) Read(p []byte) (int, error) {
	if !f.sent {
		f.sent = true
		return copy(p, f.data), nil
	}
	return 0, errors.New("device unplugged")
}

func (f *failingStream) Close() error { return nil }

type streamOpener struct{ stream Stream }

func (o streamOpener) Open(CaptureConfig) (Stream, error) { return o.stream, nil }

func pcmOf(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func newTestService(t *testing.T, opener Opener) *CaptureService {
	t.Helper()
	cfg := ServiceConfig{
		Capture:       CaptureConfig{SampleRate: 16000, Channels: 1, BitDepth: 16, ChunkFrames: 1024},
		LevelGain:     30,
		ContainerPath: filepath.Join(t.TempDir(), "output.wav"),
	}
	return NewCaptureService(cfg, opener, nil)
}

func TestStartCaptureIsIdempotent(t *testing.T) {
	t.Parallel()

	opener := &ringOpener{}
	svc := newTestService(t, opener)

	require.NoError(t, svc.StartCapture())
	require.NoError(t, svc.StartCapture())
	require.True(t, svc.Active())
	require.Equal(t, 1, opener.opens)

	c, err := svc.StopCapture()
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestStopCaptureWithoutSessionIsNoop(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &ringOpener{})
	c, err := svc.StopCapture()
	require.NoError(t, err)
	require.Nil(t, c)

	require.NoError(t, svc.StartCapture())
	_, err = svc.StopCapture()
	require.NoError(t, err)

	c, err = svc.StopCapture()
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestStopCaptureKeepsTwoSecondsOfSilence(t *testing.T) {
	t.Parallel()

	silence := make([]byte, 2*16000*2)
	svc := newTestService(t, &ringOpener{preload: silence})

	require.NoError(t, svc.StartCapture())
	c, err := svc.StopCapture()
	require.NoError(t, err)

	require.Len(t, c.PCM, 64000)
	require.InDelta(t, 2.0, c.Duration(), 1e-9)
	require.Equal(t, "RIFF", string(c.WAV[:4]))
	require.Equal(t, "WAVE", string(c.WAV[8:12]))

	decoded, err := DecodeContainer(c.WAV)
	require.NoError(t, err)
	require.Equal(t, 16000, decoded.SampleRate)
	require.Equal(t, 1, decoded.Channels)
	require.Equal(t, 16, decoded.BitDepth)
	require.Len(t, decoded.PCM, 64000)

	onDisk, err := LoadContainer(c.Path)
	require.NoError(t, err)
	require.Equal(t, c.PCM, onDisk.PCM)
}

func TestStopCaptureIncludesPartialFinalChunk(t *testing.T) {
	t.Parallel()

	// one full 2048 byte chunk plus 1000 bytes
	samples := make([]int16, 1024+500)
	for i := range samples {
		samples[i] = int16(i)
	}
	pcm := pcmOf(samples)

	svc := newTestService(t, &ringOpener{preload: pcm})
	require.NoError(t, svc.StartCapture())
	c, err := svc.StopCapture()
	require.NoError(t, err)
	require.Equal(t, pcm, c.PCM)
}

func TestStopCaptureAfterReadErrorKeepsPartialAudio(t *testing.T) {
	t.Parallel()

	data := pcmOf([]int16{100, -100, 200, -200})
	svc := newTestService(t, streamOpener{stream: &failingStream{data: data}})

	require.NoError(t, svc.StartCapture())
	c, err := svc.StopCapture()
	require.NoError(t, err)
	require.Equal(t, data, c.PCM)
}

func TestStartCaptureDeviceFailureStaysIdle(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &ringOpener{err: errors.New("no microphone")})

	err := svc.StartCapture()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrDevice)

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, "open", devErr.Op)
	require.False(t, svc.Active())

	c, err := svc.StopCapture()
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestCaptureServiceCanRecordAgain(t *testing.T) {
	t.Parallel()

	opener := &ringOpener{preload: make([]byte, 4096)}
	svc := newTestService(t, opener)

	for range 3 {
		require.NoError(t, svc.StartCapture())
		c, err := svc.StopCapture()
		require.NoError(t, err)
		require.Len(t, c.PCM, 4096)
	}
	require.Equal(t, 3, opener.opens)
}

func TestCapturePublishesLatestLevel(t *testing.T) {
	t.Parallel()

	loud := make([]int16, 4096)
	for i := range loud {
		loud[i] = 20000
	}
	svc := newTestService(t, &ringOpener{preload: pcmOf(loud)})

	require.NoError(t, svc.StartCapture())
	_, err := svc.StopCapture()
	require.NoError(t, err)

	select {
	case level := <-svc.Levels():
		require.Equal(t, 1.0, level)
	default:
		t.Fatal("expected a level update")
	}
}
