package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/stt"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	text string
	err  error
	got  *audio.Container
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Transcribe(_ context.Context, c *audio.Container) (stt.Result, error) {
	p.got = c
	if p.err != nil {
		return stt.Result{}, p.err
	}
	return stt.Result{Provider: "stub", Text: p.text, Latency: 15 * time.Millisecond}, nil
}

type upperRefiner struct{}

func (upperRefiner) Refine(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

type failingRefiner struct{}

func (failingRefiner) Refine(_ context.Context, text string) (string, error) {
	return text, errors.New("ollama down")
}

type stubCatalog struct{}

func (stubCatalog) Downloaded() ([]string, error) {
	return []string{"vosk-model-small-en-us-0.15"}, nil
}

func (stubCatalog) Default(string) string { return "vosk-model-small-en-us-0.15" }

type stubHistory struct{ entries []history.Entry }

func (h stubHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	if limit < len(h.entries) {
		return h.entries[:limit], nil
	}
	return h.entries, nil
}

func connect(t *testing.T, deps Deps) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	srv := NewServer(Config{ServerName: "murmur-test", ServerVersion: "test"}, deps, nil)
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	serverSession, err := srv.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		_ = serverSession.Wait()
	})
	return session
}

func textOf(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok)
	return tc.Text
}

func wavBase64(t *testing.T) string {
	t.Helper()
	pcm := make([]byte, 3200)
	c, err := audio.WriteContainer(filepath.Join(t.TempDir(), "in.wav"), audio.DefaultConfig(), pcm)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(c.WAV)
}

func TestTranscribeAudioRefines(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{text: "hello there"}
	session := connect(t, Deps{Provider: provider, Refiner: upperRefiner{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "transcribe_audio",
		Arguments: map[string]any{"audio": wavBase64(t)},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "HELLO THERE", textOf(t, res))
	require.Len(t, provider.got.PCM, 3200)
	require.Equal(t, 16000, provider.got.SampleRate)
}

func TestTranscribeAudioSkipsRefineOnRequest(t *testing.T) {
	t.Parallel()

	session := connect(t, Deps{Provider: &stubProvider{text: "keep me"}, Refiner: upperRefiner{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "transcribe_audio",
		Arguments: map[string]any{"audio": wavBase64(t), "refine": false},
	})
	require.NoError(t, err)
	require.Equal(t, "keep me", textOf(t, res))
}

func TestTranscribeAudioRefinerFailureKeepsText(t *testing.T) {
	t.Parallel()

	session := connect(t, Deps{Provider: &stubProvider{text: "raw"}, Refiner: failingRefiner{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "transcribe_audio",
		Arguments: map[string]any{"audio": wavBase64(t)},
	})
	require.NoError(t, err)
	require.Equal(t, "raw", textOf(t, res))
}

func TestTranscribeAudioProviderErrorIsToolError(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{err: &stt.Error{Provider: "stub", Kind: stt.KindLoading}}
	session := connect(t, Deps{Provider: provider, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "transcribe_audio",
		Arguments: map[string]any{"audio": wavBase64(t)},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "still loading")
}

func TestTranscribeAudioRejectsGarbage(t *testing.T) {
	t.Parallel()

	session := connect(t, Deps{Provider: &stubProvider{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "transcribe_audio",
		Arguments: map[string]any{"audio": base64.StdEncoding.EncodeToString([]byte("not a wav"))},
	})
	if err == nil {
		require.True(t, res.IsError)
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()

	session := connect(t, Deps{Provider: &stubProvider{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: "list_models", Arguments: map[string]any{}})
	require.NoError(t, err)
	text := textOf(t, res)
	require.Contains(t, text, "* vosk-model-small-en-us-0.15 (en-US, 40M) [default]")
	require.Contains(t, text, "  vosk-model-cn-0.22")
}

func TestRecentTranscripts(t *testing.T) {
	t.Parallel()

	hist := stubHistory{entries: []history.Entry{
		{Provider: "vosk", Text: "second", CreatedAt: time.Now()},
		{Provider: "vosk", Text: "first", CreatedAt: time.Now().Add(-time.Minute)},
	}}
	session := connect(t, Deps{Provider: &stubProvider{}, Models: stubCatalog{}, History: hist})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      "recent_transcripts",
		Arguments: map[string]any{"limit": 1},
	})
	require.NoError(t, err)
	text := textOf(t, res)
	require.Contains(t, text, "second")
	require.NotContains(t, text, "first")
}

func TestRecentTranscriptsWithoutHistory(t *testing.T) {
	t.Parallel()

	session := connect(t, Deps{Provider: &stubProvider{}, Models: stubCatalog{}})

	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: "recent_transcripts", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "history is disabled", textOf(t, res))
}
