package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/emmett/murmur/internal/config"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	SampleRate uint32

	// Channels is the number of audio channels, always 1 for dictation
	Channels uint32

	// BitDepth is the number of bits per sample, always 16
	BitDepth uint32

	// ChunkFrames is the number of frames the capture loop reads at a time
	ChunkFrames uint32

	// DeviceID selects a capture device by name or id
	// Empty string = use default device
	DeviceID string
}

// DefaultConfig returns 16kHz mono 16-bit capture with 64ms chunks
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:  16000,
		Channels:    1,
		BitDepth:    16,
		ChunkFrames: 1024,
	}
}

// FromConfig converts the audio section of the application config.
func FromConfig(a config.AudioConfig) CaptureConfig {
	return CaptureConfig{
		SampleRate:  a.SampleRate,
		Channels:    a.Channels,
		BitDepth:    a.BitDepth,
		ChunkFrames: a.ChunkFrames,
		DeviceID:    a.Device,
	}
}

// BytesPerFrame is the size of one frame across all channels.
func (c CaptureConfig) BytesPerFrame() int {
	return int(c.Channels) * int(c.BitDepth/8)
}

// ChunkBytes is the size of one capture read.
func (c CaptureConfig) ChunkBytes() int {
	return int(c.ChunkFrames) * c.BytesPerFrame()
}

// Stream is an open microphone input. Read blocks until audio is available;
// after Close it drains whatever is still buffered and then returns io.EOF.
type Stream interface {
	io.ReadCloser
}

// Opener opens input streams. MalgoOpener is the real implementation.
type Opener interface {
	Open(cfg CaptureConfig) (Stream, error)
}

// ErrDevice matches every DeviceError via errors.Is.
var ErrDevice = errors.New("audio device error")

// DeviceError reports a microphone open or read failure.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDevice) match any DeviceError.
func (e *DeviceError) Is(target error) bool { return target == ErrDevice }
