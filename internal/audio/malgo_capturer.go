package audio

import (
	"fmt"
	"sync"

	"github.com/emmett/murmur/internal/logging"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// ringSeconds is how much audio the stream buffers between the device
// callback and the capture loop.
const ringSeconds = 10

// MalgoOpener opens capture streams with malgo.
type MalgoOpener struct {
	logger *zap.Logger
}

// NewMalgoOpener creates an opener; logger may be nil.
func NewMalgoOpener(logger *zap.Logger) *MalgoOpener {
	return &MalgoOpener{logger: logging.OrNop(logger)}
}

// malgoStream adapts a running malgo capture device to Stream
type malgoStream struct {
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	ring         *RingBuffer
	logger       *zap.Logger
	closeOnce    sync.Once
	closeErr     error
}

// Open initializes malgo, resolves the device and starts capturing.
func (o *MalgoOpener) Open(cfg CaptureConfig) (Stream, error) {
	if cfg.BitDepth != 16 {
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("unsupported bit depth %d", cfg.BitDepth)}
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("failed to initialize malgo context: %w", err)}
	}

	releaseContext := func() {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = cfg.Channels
	deviceConfig.SampleRate = cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = cfg.ChunkFrames

	if cfg.DeviceID != "" {
		info, err := findCaptureDevice(malgoCtx, cfg.DeviceID)
		if err != nil {
			releaseContext()
			return nil, &DeviceError{Op: "open", Err: err}
		}
		deviceConfig.Capture.DeviceID = info.ID.Pointer()
	}

	s := &malgoStream{
		malgoContext: malgoCtx,
		ring:         NewRingBuffer(int(cfg.SampleRate) * cfg.BytesPerFrame() * ringSeconds),
		logger:       o.logger,
	}

	// the callback runs on the audio thread; it only copies into the ring
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if _, err := s.ring.Write(input); err != nil {
				s.logger.Warn("capture buffer overflow, dropping frames", zap.Error(err))
			}
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		releaseContext()
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("failed to initialize device: %w", err)}
	}
	s.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		releaseContext()
		return nil, &DeviceError{Op: "open", Err: fmt.Errorf("failed to start device: %w", err)}
	}

	return s, nil
}

func (s *malgoStream) Read(p []byte) (int, error) {
	return s.ring.Read(p)
}

// Close stops the device first so the ring receives no further writes, then
// closes the ring so the reader drains and sees EOF.
func (s *malgoStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.device.Stop(); err != nil {
			s.closeErr = &DeviceError{Op: "close", Err: fmt.Errorf("failed to stop device: %w", err)}
		}
		s.device.Uninit()
		_ = s.ring.Close()

		_ = s.malgoContext.Uninit()
		s.malgoContext.Free()

		if dropped := s.ring.Dropped(); dropped > 0 {
			s.logger.Warn("capture dropped audio", zap.Int("bytes", dropped))
		}
	})
	return s.closeErr
}

// findCaptureDevice resolves selector with MatchDevice.
func findCaptureDevice(ctx *malgo.AllocatedContext, selector string) (malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, len(infos))
	for i, info := range infos {
		devices[i] = DeviceInfo{ID: deviceID(i), Name: info.Name()}
	}
	i, ok := MatchDevice(devices, selector)
	if !ok {
		return malgo.DeviceInfo{}, fmt.Errorf("no capture device matching %q", selector)
	}
	return infos[i], nil
}

func deviceID(index int) string {
	return fmt.Sprintf("capture-%d", index)
}
