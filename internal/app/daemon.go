// Package app wires murmur's components together: the push-to-talk
// daemon, one-shot transcription, the MCP server and the CLI helpers for
// devices and models.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/hotkey"
	"github.com/emmett/murmur/internal/inject"
	"github.com/emmett/murmur/internal/input"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/output"
	"github.com/emmett/murmur/internal/refine"
	grpcserver "github.com/emmett/murmur/internal/server/grpc"
	"github.com/emmett/murmur/internal/stt"
	"github.com/emmett/murmur/internal/stt/vosk"
	"github.com/emmett/murmur/internal/worker"
	"go.uber.org/zap"
)

const eventQueueSize = 16

// Run starts the push-to-talk daemon and blocks until ctx is cancelled.
// Queued utterances finish before Run returns.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	combo, err := hotkey.ParseCombo(cfg.Hotkey.Combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}
	source, err := input.NewSource(cfg.Hotkey, combo, logger)
	if err != nil {
		return err
	}

	capCfg := audio.FromConfig(cfg.Audio)
	if cfg.Audio.Device != "" {
		dev, err := NewDeviceManager(nil).SelectDevice(cfg.Audio.Device)
		if err != nil {
			return err
		}
		// the stream resolves the selector again with the same matcher
		capCfg.DeviceID = cfg.Audio.Device
		logger.Info("using capture device", zap.String("device", dev.Name))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := models.NewManager(cfg.STT.Vosk.ModelsDir, logger)
	provider, closeProvider, err := NewProvider(ctx, cfg, mgr, vosk.Load, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	store, err := history.Open(ctx, cfg.History, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	capture := audio.NewCaptureService(audio.ServiceConfig{
		Capture:       capCfg,
		LevelGain:     cfg.Audio.LevelGain,
		ContainerPath: cfg.Audio.ContainerPath(),
	}, audio.NewMalgoOpener(logger), logger)

	bridge := output.NewBridge(logger)
	go bridge.Run(ctx, output.NewConsole(output.ConsoleConfig{ShowTimestamp: true}))
	go forwardLevels(ctx, capture.Levels(), bridge)

	pool := worker.NewPool(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	defer pool.Close()

	orch := NewOrchestrator(cfg.Pipeline, Deps{
		Capture:  capture,
		Provider: provider,
		Refiner:  refine.New(cfg.Refine, logger),
		Injector: inject.New(cfg.Inject, inject.SystemClipboard{}, &inject.SystemKeyboard{}, logger),
		History:  store,
		Pool:     pool,
		UI:       bridge,
	}, logger)

	if cfg.Server.Enabled {
		srv := grpcserver.NewServer(grpcserver.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, provider, logger)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error("health server stopped", zap.Error(err))
			}
		}()
	}

	events := make(chan hotkey.Event, eventQueueSize)
	machine := hotkey.NewMachine(combo, func(ev hotkey.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("hotkey event dropped", zap.Stringer("event", ev.Type))
		}
	})

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		orch.Run(ctx, events)
	}()

	logger.Info("murmur ready",
		zap.String("hotkey", combo.String()),
		zap.String("provider", provider.Name()),
		zap.Stringer("state", stt.StateOf(provider)),
	)
	bridge.Notice(fmt.Sprintf("hold %s to dictate, Ctrl+C to quit", combo))

	err = source.Run(ctx, machine)
	cancel()
	<-orchDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("hotkey listener: %w", err)
	}
	logger.Info("shutting down, waiting for queued utterances")
	return nil
}

func forwardLevels(ctx context.Context, levels <-chan float64, ui output.UI) {
	for {
		select {
		case <-ctx.Done():
			return
		case level := <-levels:
			ui.UpdateLevel(level)
		}
	}
}
