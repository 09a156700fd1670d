package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/models"
	"github.com/emmett/murmur/internal/stt"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func (s *Server) handleTranscribeAudio(ctx context.Context, req *sdk.CallToolRequest, args TranscribeArgs) (*sdk.CallToolResult, TranscriptOutput, error) {
	data, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return nil, TranscriptOutput{}, fmt.Errorf("invalid base64 audio: %w", err)
	}

	container, err := audio.DecodeContainer(data)
	if err != nil {
		return nil, TranscriptOutput{}, fmt.Errorf("invalid audio: %w", err)
	}

	result, err := s.deps.Provider.Transcribe(ctx, container)
	if err != nil {
		var sttErr *stt.Error
		if errors.As(err, &sttErr) {
			return errorResult(sttErr.Placeholder()), TranscriptOutput{}, nil
		}
		return nil, TranscriptOutput{}, fmt.Errorf("transcription failed: %w", err)
	}

	text := result.Text
	if s.deps.Refiner != nil && (args.Refine == nil || *args.Refine) {
		refined, err := s.deps.Refiner.Refine(ctx, text)
		if err != nil {
			s.logger.Warn("refinement failed, using raw transcript", zap.Error(err))
		}
		text = refined
	}

	out := TranscriptOutput{
		Provider:   result.Provider,
		Text:       text,
		RawText:    result.Text,
		Confidence: result.Confidence,
		LatencyMS:  result.Latency.Milliseconds(),
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
	}, out, nil
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args ListModelsArgs) (*sdk.CallToolResult, ModelsOutput, error) {
	downloaded, err := s.deps.Models.Downloaded()
	if err != nil {
		return nil, ModelsOutput{}, fmt.Errorf("failed to list models: %w", err)
	}
	def := s.deps.Models.Default(s.config.DefaultModel)

	out := ModelsOutput{Models: make([]ModelInfo, 0, len(models.AvailableModels))}
	var b strings.Builder
	for _, m := range models.AvailableModels {
		info := ModelInfo{
			Name:       m.Name,
			Language:   m.Language,
			Size:       m.Size,
			Downloaded: slices.Contains(downloaded, m.Name),
			Default:    m.Name == def,
		}
		out.Models = append(out.Models, info)

		mark := " "
		if info.Downloaded {
			mark = "*"
		}
		fmt.Fprintf(&b, "%s %s (%s, %s)", mark, m.Name, m.Language, m.Size)
		if info.Default {
			b.WriteString(" [default]")
		}
		b.WriteByte('\n')
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: b.String()}},
	}, out, nil
}

func (s *Server) handleRecentTranscripts(ctx context.Context, req *sdk.CallToolRequest, args RecentArgs) (*sdk.CallToolResult, RecentOutput, error) {
	out := RecentOutput{Transcripts: []TranscriptRecord{}}
	if s.deps.History == nil {
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: "history is disabled"}},
		}, out, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	entries, err := s.deps.History.Recent(ctx, limit)
	if err != nil {
		return nil, RecentOutput{}, fmt.Errorf("failed to read history: %w", err)
	}

	var b strings.Builder
	for _, e := range entries {
		out.Transcripts = append(out.Transcripts, TranscriptRecord{
			Time:      e.CreatedAt.UTC().Format(time.RFC3339),
			Provider:  e.Provider,
			Text:      e.Text,
			ErrorKind: e.ErrorKind,
		})
		fmt.Fprintf(&b, "[%s] %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Text)
	}
	if len(entries) == 0 {
		b.WriteString("no transcripts recorded\n")
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: b.String()}},
	}, out, nil
}

func errorResult(msg string) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: msg}},
	}
}
