package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/history"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.STT.Vosk.ModelsDir = filepath.Join(dir, "models")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path, cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "murmur v"+Version)
}

func TestHistoryCommandJSON(t *testing.T) {
	path, cfg := writeConfig(t)

	out, err := execute(t, "--config", path, "history", "--format", "json")
	require.NoError(t, err)
	require.Equal(t, "[]\n", out)

	store, err := history.Open(context.Background(), cfg.History, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), history.Entry{SessionID: "s1", Provider: "vosk", Text: "dictated words"}))
	require.NoError(t, store.Close())

	out, err = execute(t, "--config", path, "history", "-n", "5")
	require.NoError(t, err)
	require.Contains(t, out, "dictated words")
}

func TestHistoryCommandRejectsUnknownFormat(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(t, "--config", path, "history", "--format", "csv")
	require.Error(t, err)
}

func TestModelsSetDefaultWritesConfig(t *testing.T) {
	path, _ := writeConfig(t)

	out, err := execute(t, "--config", path, "models", "set-default", "vosk-model-small-en-us-0.15")
	require.NoError(t, err)
	require.Contains(t, out, "Default model set to: vosk-model-small-en-us-0.15")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "vosk-model-small-en-us-0.15", cfg.STT.Vosk.Model)
}

func TestInvalidProviderFlag(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(t, "--config", path, "--provider", "whisper", "history")
	require.Error(t, err)
	require.Contains(t, err.Error(), "whisper")
}
