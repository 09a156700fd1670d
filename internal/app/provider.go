package app

import (
	"context"
	"fmt"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/stt"
	"go.uber.org/zap"
)

// NewProvider builds the provider named by stt.provider. A local provider
// starts loading its model in the background before NewProvider returns.
// The returned close function releases the provider.
func NewProvider(ctx context.Context, cfg config.Config, mgr *models.Manager, load stt.ModelLoader, logger *zap.Logger) (stt.Provider, func() error, error) {
	noop := func() error { return nil }

	switch cfg.STT.Provider {
	case config.ProviderVosk:
		p := stt.NewLocalProvider(localConfig(cfg, mgr), load, logger)
		p.Load(ctx)
		return p, p.Close, nil
	case config.ProviderVolcengine:
		return stt.NewVolcengineProvider(cfg.STT.Volcengine, logger), noop, nil
	case config.ProviderSenseVoice:
		return stt.NewSenseVoiceProvider(cfg.STT.SenseVoice, logger), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
}

func localConfig(cfg config.Config, mgr *models.Manager) stt.LocalConfig {
	vc := cfg.STT.Vosk
	vad := audio.DefaultVADConfig()
	if vc.VAD.Threshold > 0 {
		vad.EnergyThreshold = vc.VAD.Threshold
	}
	if vc.VAD.HangoverMS > 0 {
		vad.HangoverMS = vc.VAD.HangoverMS
	}

	return stt.LocalConfig{
		Name: config.ProviderVosk,
		Resolve: func(ctx context.Context) (string, error) {
			return mgr.Ensure(ctx, ModelName(cfg, mgr), vc.AutoDownload)
		},
		VADEnabled:      vc.VAD.Enabled,
		VAD:             vad,
		RetryWithoutVAD: vc.VAD.RetryWithoutVAD,
	}
}

// ModelName is the Vosk model to load: stt.vosk.model, else the model
// marked default in the models directory, else the first catalogue entry.
func ModelName(cfg config.Config, mgr *models.Manager) string {
	if cfg.STT.Vosk.Model != "" {
		return cfg.STT.Vosk.Model
	}
	return mgr.Default(models.AvailableModels[0].Name)
}
