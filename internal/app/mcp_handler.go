package app

import (
	"context"
	"fmt"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/refine"
	"github.com/emmett/murmur/internal/server/mcp"
	"github.com/emmett/murmur/internal/stt/vosk"
	"go.uber.org/zap"
)

// RunMCP serves the MCP tools over stdio until the client disconnects or
// ctx is cancelled. Logs must go to stderr; stdout carries the protocol.
func RunMCP(ctx context.Context, cfg config.Config, version string, logger *zap.Logger) error {
	mgr := models.NewManager(cfg.STT.Vosk.ModelsDir, logger, models.WithoutProgress())
	provider, closeProvider, err := NewProvider(ctx, cfg, mgr, vosk.Load, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	deps := mcp.Deps{
		Provider: provider,
		Refiner:  refine.New(cfg.Refine, logger),
		Models:   mgr,
	}
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.History = store
	}

	server := mcp.NewServer(mcp.Config{
		ServerName:    "murmur-mcp",
		ServerVersion: version,
		DefaultModel:  ModelName(cfg, mgr),
	}, deps, logger)

	logger.Info("MCP server ready on stdio", zap.String("provider", provider.Name()))
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
