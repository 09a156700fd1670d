// Package mcp serves murmur's transcription tools over the Model Context
// Protocol.
package mcp

import (
	"context"

	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/stt"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

type Config struct {
	ServerName    string
	ServerVersion string
	DefaultModel  string
}

// Refiner cleans up transcribed text.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}

// ModelCatalog reports which local models are present.
type ModelCatalog interface {
	Downloaded() ([]string, error)
	Default(fallback string) string
}

// HistoryReader lists recorded utterances.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Deps are the components the tools call into. Refiner and History may be
// nil.
type Deps struct {
	Provider stt.Provider
	Refiner  Refiner
	Models   ModelCatalog
	History  HistoryReader
}

type Server struct {
	config    Config
	deps      Deps
	mcpServer *sdk.Server
	logger    *zap.Logger
}

func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logging.OrNop(logger),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)
	s.registerTools()

	return s
}

// Run serves over stdio until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "transcribe_audio",
		Description: "Transcribe a WAV recording with the configured speech provider",
	}, s.handleTranscribeAudio)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_models",
		Description: "List known Vosk models and which are downloaded",
	}, s.handleListModels)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "recent_transcripts",
		Description: "List the most recent dictated transcripts",
	}, s.handleRecentTranscripts)
}
