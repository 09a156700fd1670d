package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// Model is a loaded local speech model. The stt/vosk package provides the
// libvosk implementation.
type Model interface {
	NewRecognizer(sampleRate float64) (Recognizer, error)
	Free()
}

// Recognizer decodes one utterance. It is not shared between calls.
type Recognizer interface {
	AcceptWaveform(data []byte) int
	FinalResult() string
	Free()
}

// ModelLoader opens the model at path.
type ModelLoader func(path string) (Model, error)

// LocalConfig configures a LocalProvider.
type LocalConfig struct {
	// Name is reported as the provider name, "vosk" by default
	Name string

	// Resolve returns the model directory, downloading it if needed
	Resolve func(ctx context.Context) (string, error)

	VADEnabled      bool
	VAD             audio.VADConfig
	RetryWithoutVAD bool
}

// VoskResult represents the JSON result from Vosk
type VoskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
}

// LocalProvider transcribes with a model loaded in the background. Calls
// made before loading finishes fail fast instead of waiting.
type LocalProvider struct {
	cfg    LocalConfig
	load   ModelLoader
	logger *zap.Logger

	mu      sync.RWMutex
	state   LoadState
	model   Model
	loadErr error
	ready   chan struct{}
	once    sync.Once
}

// NewLocalProvider creates a provider in the Loading state. Call Load to
// start warming up.
func NewLocalProvider(cfg LocalConfig, load ModelLoader, logger *zap.Logger) *LocalProvider {
	if cfg.Name == "" {
		cfg.Name = "vosk"
	}
	return &LocalProvider{
		cfg:    cfg,
		load:   load,
		logger: logging.OrNop(logger),
		state:  StateLoading,
		ready:  make(chan struct{}),
	}
}

func (p *LocalProvider) Name() string { return p.cfg.Name }

// Load starts loading the model in a goroutine. Further calls do nothing.
func (p *LocalProvider) Load(ctx context.Context) {
	p.once.Do(func() {
		go p.loadModel(ctx)
	})
}

func (p *LocalProvider) loadModel(ctx context.Context) {
	defer close(p.ready)

	start := time.Now()
	model, err := p.open(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateFailed
		p.loadErr = err
		p.logger.Error("failed to load speech model", zap.String("provider", p.cfg.Name), zap.Error(err))
		return
	}
	p.model = model
	p.state = StateReady
	p.logger.Info("speech model loaded",
		zap.String("provider", p.cfg.Name),
		zap.Duration("took", time.Since(start)),
	)
}

func (p *LocalProvider) open(ctx context.Context) (model Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model loader panicked: %v", r)
		}
	}()

	if p.cfg.Resolve == nil {
		return nil, errors.New("no model path resolver configured")
	}
	path, err := p.cfg.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	model, err = p.load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", path, err)
	}
	if model == nil {
		return nil, fmt.Errorf("failed to load model from %s: model returned nil", path)
	}
	return model, nil
}

// State returns the warm-up state.
func (p *LocalProvider) State() LoadState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// WaitReady blocks until loading finishes, returning the load error if any.
func (p *LocalProvider) WaitReady(ctx context.Context) error {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadErr
}

// Transcribe runs the model over the container, with VAD filtering when
// enabled. If the VAD pass fails it retries once on the unfiltered audio
// when RetryWithoutVAD is set.
func (p *LocalProvider) Transcribe(ctx context.Context, c *audio.Container) (Result, error) {
	start := time.Now()

	// the read lock spans recognition so Close cannot free the model mid-call
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, model, loadErr := p.state, p.model, p.loadErr

	switch state {
	case StateLoading:
		return Result{}, p.fail(KindLoading, "", nil)
	case StateFailed:
		return Result{}, p.fail(KindNotReady, "", loadErr)
	}

	if c.Empty() {
		return Result{Provider: p.cfg.Name, Latency: time.Since(start)}, nil
	}
	if c.Channels != 1 || c.BitDepth != 16 {
		return Result{}, p.fail(KindInput, fmt.Sprintf("need 16-bit mono, got %d-bit %d channel", c.BitDepth, c.Channels), nil)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, p.fail(KindTransport, "", err)
	}

	var (
		vr  VoskResult
		err error
	)
	if p.cfg.VADEnabled {
		vr, err = p.recognizeWithVAD(model, c)
		if err != nil && p.cfg.RetryWithoutVAD {
			p.logger.Warn("vad pass failed, retrying without vad", zap.Error(err))
			vr, err = recognize(model, c.PCM, c.SampleRate)
		}
	} else {
		vr, err = recognize(model, c.PCM, c.SampleRate)
	}
	if err != nil {
		return Result{}, p.fail(KindTransport, "recognition failed", err)
	}

	return Result{
		Provider:   p.cfg.Name,
		Text:       vr.Text,
		Confidence: averageConfidence(vr),
		Latency:    time.Since(start),
	}, nil
}

func (p *LocalProvider) recognizeWithVAD(model Model, c *audio.Container) (VoskResult, error) {
	speech, err := audio.NewVAD(p.cfg.VAD).Filter(c.PCM, c.SampleRate)
	if errors.Is(err, audio.ErrNoSpeech) {
		return VoskResult{}, nil
	}
	if err != nil {
		return VoskResult{}, fmt.Errorf("vad: %w", err)
	}
	return recognize(model, speech, c.SampleRate)
}

func recognize(model Model, pcm []byte, sampleRate int) (vr VoskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recognizer panicked: %v", r)
		}
	}()

	rec, err := model.NewRecognizer(float64(sampleRate))
	if err != nil {
		return VoskResult{}, fmt.Errorf("failed to create recognizer: %w", err)
	}
	defer rec.Free()

	rec.AcceptWaveform(pcm)
	if err := json.Unmarshal([]byte(rec.FinalResult()), &vr); err != nil {
		return VoskResult{}, fmt.Errorf("failed to parse final result: %w", err)
	}
	return vr, nil
}

func (p *LocalProvider) fail(kind Kind, detail string, err error) *Error {
	return &Error{Provider: p.cfg.Name, Kind: kind, Detail: detail, Err: err}
}

// Close frees the model once loading has finished and in-flight
// transcriptions have returned. A provider closed before Load never loads.
func (p *LocalProvider) Close() error {
	p.once.Do(func() { close(p.ready) })
	<-p.ready
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model != nil {
		p.model.Free()
		p.model = nil
	}
	p.state = StateFailed
	p.loadErr = errors.New("provider closed")
	return nil
}

// averageConfidence calculates the average confidence from word results
func averageConfidence(result VoskResult) float64 {
	if len(result.Result) == 0 {
		return 0.0
	}

	var sum float64
	for _, word := range result.Result {
		sum += word.Conf
	}
	return sum / float64(len(result.Result))
}
