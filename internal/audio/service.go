package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// ServiceConfig configures a CaptureService.
type ServiceConfig struct {
	Capture CaptureConfig

	// LevelGain scales the normalized mean amplitude before clipping
	LevelGain float64

	// ContainerPath is where each finished session is written, overwritten per session
	ContainerPath string
}

// CaptureService owns the microphone for push-to-talk sessions. At most
// one session is active at a time.
type CaptureService struct {
	cfg    ServiceConfig
	opener Opener
	logger *zap.Logger
	levels chan float64

	mu      sync.Mutex
	active  bool
	stream  Stream
	frames  *bytes.Buffer
	readErr error
	done    chan struct{}
}

// NewCaptureService creates a service; logger may be nil.
func NewCaptureService(cfg ServiceConfig, opener Opener, logger *zap.Logger) *CaptureService {
	if cfg.LevelGain <= 0 {
		cfg.LevelGain = 30
	}
	return &CaptureService{
		cfg:    cfg,
		opener: opener,
		logger: logging.OrNop(logger),
		levels: make(chan float64, 1),
	}
}

// Levels delivers per-chunk amplitude levels. Delivery is best effort: if
// nobody is reading, levels are dropped.
func (s *CaptureService) Levels() <-chan float64 {
	return s.levels
}

// Active reports whether a session is recording.
func (s *CaptureService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StartCapture opens the stream and launches the capture goroutine. It is
// a no-op while a session is active or the previous capture goroutine has
// not been joined yet. Open failures return a *DeviceError and leave the
// service idle.
func (s *CaptureService) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active || s.done != nil {
		return nil
	}

	stream, err := s.opener.Open(s.cfg.Capture)
	if err != nil {
		var devErr *DeviceError
		if errors.As(err, &devErr) {
			return err
		}
		return &DeviceError{Op: "open", Err: err}
	}

	s.active = true
	s.stream = stream
	s.frames = &bytes.Buffer{}
	s.readErr = nil
	s.done = make(chan struct{})

	go s.captureLoop(stream, s.frames, s.done)

	s.logger.Debug("capture started",
		zap.Uint32("sample_rate", s.cfg.Capture.SampleRate),
		zap.String("device", s.cfg.Capture.DeviceID),
	)
	return nil
}

// captureLoop owns frames until done is closed.
func (s *CaptureService) captureLoop(stream Stream, frames *bytes.Buffer, done chan struct{}) {
	defer close(done)

	chunk := make([]byte, s.cfg.Capture.ChunkBytes())
	for {
		n, err := io.ReadFull(stream, chunk)
		if n > 0 {
			frames.Write(chunk[:n])
			s.publishLevel(Level(chunk[:n], s.cfg.LevelGain))
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return
		default:
			s.mu.Lock()
			s.readErr = &DeviceError{Op: "read", Err: err}
			s.mu.Unlock()
			s.logger.Error("capture read failed, keeping partial audio", zap.Error(err))
			return
		}
	}
}

// publishLevel keeps only the newest level if the consumer is behind.
func (s *CaptureService) publishLevel(level float64) {
	select {
	case s.levels <- level:
		return
	default:
	}
	select {
	case <-s.levels:
	default:
	}
	select {
	case s.levels <- level:
	default:
	}
}

// StopCapture ends the session and returns its container. With no active
// session it returns (nil, nil). A read error during capture does not lose
// the frames captured before it.
func (s *CaptureService) StopCapture() (*Container, error) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, nil
	}
	s.active = false
	stream, frames, done := s.stream, s.frames, s.done
	s.stream, s.frames = nil, nil
	s.mu.Unlock()

	closeErr := stream.Close()
	<-done

	s.mu.Lock()
	readErr := s.readErr
	s.done = nil
	s.mu.Unlock()

	if closeErr != nil {
		s.logger.Warn("closing capture stream failed", zap.Error(closeErr))
	}
	if readErr != nil {
		s.logger.Warn("session ended by read error", zap.Error(readErr))
	}

	container, err := WriteContainer(s.cfg.ContainerPath, s.cfg.Capture, frames.Bytes())
	if err != nil {
		return nil, fmt.Errorf("serialize session audio: %w", err)
	}

	s.logger.Debug("capture stopped",
		zap.Int("bytes", len(container.PCM)),
		zap.Float64("seconds", container.Duration()),
	)
	return container, nil
}
