package app

import (
	"context"
	"fmt"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/output"
	"github.com/emmett/murmur/internal/refine"
	"github.com/emmett/murmur/internal/stt"
	"github.com/emmett/murmur/internal/stt/vosk"
	"go.uber.org/zap"
)

// TranscribeFile runs the configured provider and refiner over a WAV file.
func TranscribeFile(ctx context.Context, cfg config.Config, path string, logger *zap.Logger) (output.Transcript, error) {
	container, err := audio.LoadContainer(path)
	if err != nil {
		return output.Transcript{}, err
	}

	mgr := models.NewManager(cfg.STT.Vosk.ModelsDir, logger)
	provider, closeProvider, err := NewProvider(ctx, cfg, mgr, vosk.Load, logger)
	if err != nil {
		return output.Transcript{}, err
	}
	defer closeProvider()

	t, err := transcribeContainer(ctx, provider, refine.New(cfg.Refine, logger), container, logger)
	t.File = path
	return t, err
}

func transcribeContainer(ctx context.Context, provider stt.Provider, refiner Refiner, c *audio.Container, logger *zap.Logger) (output.Transcript, error) {
	if err := stt.WaitReady(ctx, provider); err != nil {
		return output.Transcript{}, fmt.Errorf("speech model not ready: %w", err)
	}

	result, err := provider.Transcribe(ctx, c)
	if err != nil {
		return output.Transcript{}, err
	}

	text, err := refiner.Refine(ctx, result.Text)
	if err != nil {
		logging.OrNop(logger).Warn("refinement failed, using raw transcript", zap.Error(err))
	}
	return output.Transcript{
		Provider:   result.Provider,
		Text:       text,
		RawText:    result.Text,
		Confidence: result.Confidence,
		Latency:    result.Latency,
	}, nil
}
