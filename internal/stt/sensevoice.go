package stt

import (
	"context"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// SenseVoiceProvider is a placeholder for a local SenseVoice model. It
// always answers with a KindPending error.
type SenseVoiceProvider struct {
	cfg config.SenseVoiceConfig
}

func NewSenseVoiceProvider(cfg config.SenseVoiceConfig, logger *zap.Logger) *SenseVoiceProvider {
	logging.OrNop(logger).Info("sensevoice provider selected, inference not wired yet",
		zap.String("model_dir", cfg.ModelDir))
	return &SenseVoiceProvider{cfg: cfg}
}

func (p *SenseVoiceProvider) Name() string { return config.ProviderSenseVoice }

func (p *SenseVoiceProvider) Transcribe(context.Context, *audio.Container) (Result, error) {
	return Result{}, &Error{
		Provider: p.Name(),
		Kind:     KindPending,
		Detail:   "volcengine or vosk for now",
	}
}
