package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Container is a finished recording: the WAV file bytes plus the PCM
// payload they wrap. It is produced once per session and then owned by
// whoever transcribes it.
type Container struct {
	SampleRate int
	Channels   int
	BitDepth   int

	// WAV is the complete RIFF/WAV file
	WAV []byte

	// PCM is the 16-bit little-endian sample data
	PCM []byte

	// Path is where the container was written, if anywhere
	Path string
}

// Duration in seconds.
func (c *Container) Duration() float64 {
	bytesPerSecond := c.SampleRate * c.Channels * c.BitDepth / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return float64(len(c.PCM)) / float64(bytesPerSecond)
}

// Empty reports whether the container holds no samples.
func (c *Container) Empty() bool {
	return c == nil || len(c.PCM) == 0
}

// WriteContainer encodes pcm as WAV at path, overwriting any previous file,
// and returns the container read back from disk. A trailing odd byte cannot
// form a 16-bit sample and is dropped.
func WriteContainer(path string, cfg CaptureConfig, pcm []byte) (*Container, error) {
	if cfg.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", cfg.BitDepth)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create wav file: %w", err)
	}

	if err := encodePCM(file, pcm, int(cfg.SampleRate), int(cfg.Channels)); err != nil {
		_ = file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("close wav file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav file: %w", err)
	}

	return &Container{
		SampleRate: int(cfg.SampleRate),
		Channels:   int(cfg.Channels),
		BitDepth:   int(cfg.BitDepth),
		WAV:        data,
		PCM:        pcm[:len(pcm)&^1],
		Path:       path,
	}, nil
}

func encodePCM(w io.WriteSeeker, pcm []byte, sampleRate, channels int) error {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	buffer := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// ErrNotWAV is returned when input is not a readable PCM WAV file.
var ErrNotWAV = errors.New("not a valid wav file")

// DecodeContainer parses WAV bytes. Only 16-bit PCM is accepted.
func DecodeContainer(data []byte) (*Container, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, need 16", dec.BitDepth)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}

	return &Container{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		WAV:        data,
		PCM:        pcm,
	}, nil
}

// LoadContainer reads and decodes a WAV file from disk.
func LoadContainer(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := DecodeContainer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Path = path
	return c, nil
}
