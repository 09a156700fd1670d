package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/emmett/murmur/internal/config"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, maxRows int) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.HistoryConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "nested", "history.db"),
		MaxRows: maxRows,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 100)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, Entry{
		SessionID: "a", Provider: "vosk", RawText: "um hello", Text: "Hello.",
		AudioSeconds: 1.5, Latency: 420 * time.Millisecond, CreatedAt: base,
	}))
	require.NoError(t, s.Append(ctx, Entry{
		SessionID: "b", Provider: "volcengine", ErrorKind: "provider",
		Text: "(volcengine error [45000001]: bad audio)", CreatedAt: base.Add(time.Minute),
	}))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "b", entries[0].SessionID)
	require.Equal(t, "provider", entries[0].ErrorKind)

	first := entries[1]
	require.Equal(t, "a", first.SessionID)
	require.Equal(t, "vosk", first.Provider)
	require.Equal(t, "um hello", first.RawText)
	require.Equal(t, "Hello.", first.Text)
	require.InDelta(t, 1.5, first.AudioSeconds, 1e-9)
	require.Equal(t, 420*time.Millisecond, first.Latency)
	require.True(t, base.Equal(first.CreatedAt))
}

func TestAppendPrunesToMaxRows(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 3)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, s.Append(ctx, Entry{
			SessionID: fmt.Sprintf("s%d", i),
			Provider:  "vosk",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "s4", entries[0].SessionID)
	require.Equal(t, "s2", entries[2].SessionID)
}

func TestRecentLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, 0)
	ctx := context.Background()
	for i := range 4 {
		require.NoError(t, s.Append(ctx, Entry{SessionID: fmt.Sprintf("s%d", i), Provider: "vosk"}))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestDisabledStoreIsNoop(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), config.HistoryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.False(t, s.Enabled())
	require.NoError(t, s.Append(context.Background(), Entry{SessionID: "x"}))

	entries, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NoError(t, s.Close())
}

func TestReopenKeepsEntries(t *testing.T) {
	t.Parallel()

	cfg := config.HistoryConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "h.db"), MaxRows: 10}
	ctx := context.Background()

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Entry{SessionID: "persisted", Provider: "vosk"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "persisted", entries[0].SessionID)
}
