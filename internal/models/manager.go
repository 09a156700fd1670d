// Package models manages local Vosk model directories: the catalogue,
// downloads, extraction and the default model marker.
package models

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/emmett/murmur/internal/logging"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Model represents a Vosk model
type Model struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Size        string `json:"size"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// AvailableModels lists the models murmur knows how to download
var AvailableModels = []Model{
	{
		Name:        "vosk-model-small-cn-0.22",
		Language:    "zh-CN",
		Size:        "42M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-cn-0.22.zip",
		Description: "Lightweight Mandarin model, fast dictation on CPU",
	},
	{
		Name:        "vosk-model-cn-0.22",
		Language:    "zh-CN",
		Size:        "1.3G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-cn-0.22.zip",
		Description: "Large Mandarin model, slower but more accurate",
	},
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22-lgraph",
		Language:    "en-US",
		Size:        "128M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22-lgraph.zip",
		Description: "Medium English model, balanced speed and accuracy",
	},
}

// ErrUnknownModel is returned for names missing from AvailableModels.
var ErrUnknownModel = errors.New("unknown model")

// ErrNotDownloaded is returned when a model directory does not exist.
var ErrNotDownloaded = errors.New("model not downloaded")

const defaultMarker = ".default_model"

// FindModel finds a model by name in the available models list
func FindModel(name string) (Model, bool) {
	for _, m := range AvailableModels {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// DefaultDir is where models live when stt.vosk.models_dir is empty.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "murmur", "models")
}

// Manager manages one models directory.
type Manager struct {
	dir        string
	client     *http.Client
	logger     *zap.Logger
	noProgress bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithoutProgress disables the terminal progress bar.
func WithoutProgress() Option {
	return func(m *Manager) { m.noProgress = true }
}

// NewManager creates a manager rooted at dir, or DefaultDir if dir is empty.
func NewManager(dir string, logger *zap.Logger, opts ...Option) *Manager {
	if dir == "" {
		dir = DefaultDir()
	}
	m := &Manager{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Minute},
		logger: logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the models directory.
func (m *Manager) Dir() string { return m.dir }

// Path returns the directory of a downloaded model.
func (m *Manager) Path(name string) (string, error) {
	ok, err := m.IsDownloaded(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotDownloaded, name)
	}
	return filepath.Join(m.dir, name), nil
}

// IsDownloaded checks if a model directory exists.
func (m *Manager) IsDownloaded(name string) (bool, error) {
	info, err := os.Stat(filepath.Join(m.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Downloaded lists downloaded model directories.
func (m *Manager) Downloaded() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model-") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Default returns the model recorded by SetDefault, or fallback.
func (m *Manager) Default(fallback string) string {
	data, err := os.ReadFile(filepath.Join(m.dir, defaultMarker))
	if err != nil {
		return fallback
	}
	if name := strings.TrimSpace(string(data)); name != "" {
		return name
	}
	return fallback
}

// SetDefault records name as the default model.
func (m *Manager) SetDefault(name string) error {
	if _, ok := FindModel(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, defaultMarker), []byte(name), 0o644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}
	return nil
}

// Ensure returns the path of name, downloading it first when missing and
// download is true.
func (m *Manager) Ensure(ctx context.Context, name string, download bool) (string, error) {
	if path, err := m.Path(name); err == nil {
		return path, nil
	} else if !errors.Is(err, ErrNotDownloaded) {
		return "", err
	}

	if !download {
		return "", fmt.Errorf("%w: %s (run `murmur models download %s`)", ErrNotDownloaded, name, name)
	}
	if err := m.Download(ctx, name); err != nil {
		return "", err
	}
	return m.Path(name)
}

// Download fetches and extracts a catalogue model.
func (m *Manager) Download(ctx context.Context, name string) error {
	model, ok := FindModel(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return m.download(ctx, model)
}

func (m *Manager) download(ctx context.Context, model Model) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	zipPath := filepath.Join(m.dir, model.Name+".zip.part")
	defer os.Remove(zipPath)

	m.logger.Info("downloading model", zap.String("model", model.Name), zap.String("size", model.Size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	var writer io.Writer = out
	var bar *progressbar.ProgressBar
	if m.showProgress(resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(model.Name),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(writer, resp.Body)
	closeErr := out.Close()
	if bar != nil {
		_ = bar.Finish()
	}
	if copyErr != nil {
		return fmt.Errorf("download error: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close download: %w", closeErr)
	}

	m.logger.Info("extracting model", zap.String("model", model.Name))
	if err := extractZip(zipPath, m.dir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}
	return nil
}

func (m *Manager) showProgress(contentLength int64) bool {
	if m.noProgress || contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(destDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// zip slip
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("illegal file path: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(f, fpath); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(out, rc)
	return err
}
