// Package refine optionally cleans up transcribed text with a local
// language model served by Ollama.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model produced only whitespace.
var ErrEmptyResponse = errors.New("model returned an empty response")

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Refiner sends text to Ollama's /api/generate endpoint.
type Refiner struct {
	cfg    config.RefineConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a refiner. A disabled refiner passes text through.
func New(cfg config.RefineConfig, logger *zap.Logger) *Refiner {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Refiner{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logging.OrNop(logger),
	}
}

// Enabled reports whether Refine calls the model at all.
func (r *Refiner) Enabled() bool { return r.cfg.Enabled }

// Refine returns the cleaned text. When disabled, or when text is blank,
// text comes back unchanged and no request is made. On any failure the
// original text is returned together with the error.
func (r *Refiner) Refine(ctx context.Context, text string) (string, error) {
	if !r.cfg.Enabled || strings.TrimSpace(text) == "" {
		return text, nil
	}

	refined, err := r.generate(ctx, text)
	if err != nil {
		r.logger.Warn("refinement failed, using original text", zap.Error(err))
		return text, err
	}

	r.logger.Debug("refined text", zap.String("text", refined))
	return refined, nil
}

func (r *Refiner) generate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  r.cfg.Model,
		Prompt: r.cfg.Prompt + text,
		Stream: false,
		Options: ollamaOptions{
			Temperature: r.cfg.Temperature,
			NumPredict:  r.cfg.NumPredict,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	refined := strings.TrimSpace(out.Response)
	if refined == "" {
		return "", ErrEmptyResponse
	}
	return refined, nil
}
