package models

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloadExtractsModel(t *testing.T) {
	t.Parallel()

	payload := zipOf(t, map[string]string{
		"vosk-model-test/conf/model.conf": "--sample-frequency=16000",
		"vosk-model-test/am/final.mdl":    "weights",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), nil, WithoutProgress())
	require.NoError(t, m.download(context.Background(), Model{Name: "vosk-model-test", URL: srv.URL}))

	path, err := m.Path("vosk-model-test")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(path, "conf", "model.conf"))
	require.NoError(t, err)
	require.Equal(t, "--sample-frequency=16000", string(data))

	names, err := m.Downloaded()
	require.NoError(t, err)
	require.Equal(t, []string{"vosk-model-test"}, names)

	// the partial archive is cleaned up
	_, err = os.Stat(filepath.Join(m.Dir(), "vosk-model-test.zip.part"))
	require.True(t, os.IsNotExist(err))
}

func TestDownloadRejectsZipSlip(t *testing.T) {
	t.Parallel()

	payload := zipOf(t, map[string]string{"../escape.txt": "nope"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "models"), nil, WithoutProgress())
	err := m.download(context.Background(), Model{Name: "evil", URL: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "illegal file path")

	_, statErr := os.Stat(filepath.Join(dir, "escape.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestDownloadHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewManager(t.TempDir(), nil, WithoutProgress())
	err := m.download(context.Background(), Model{Name: "missing", URL: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestEnsureWithoutDownload(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), nil)
	_, err := m.Ensure(context.Background(), "vosk-model-small-cn-0.22", false)
	require.ErrorIs(t, err, ErrNotDownloaded)

	require.NoError(t, os.MkdirAll(filepath.Join(m.Dir(), "vosk-model-small-cn-0.22"), 0o755))
	path, err := m.Ensure(context.Background(), "vosk-model-small-cn-0.22", false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(m.Dir(), "vosk-model-small-cn-0.22"), path)
}

func TestDefaultMarker(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), nil)
	require.Equal(t, "fallback", m.Default("fallback"))

	require.ErrorIs(t, m.SetDefault("no-such-model"), ErrUnknownModel)
	require.NoError(t, m.SetDefault("vosk-model-small-en-us-0.15"))
	require.Equal(t, "vosk-model-small-en-us-0.15", m.Default("fallback"))
}

func TestDownloadUnknownModel(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), nil)
	require.ErrorIs(t, m.Download(context.Background(), "vosk-model-nope"), ErrUnknownModel)
}
