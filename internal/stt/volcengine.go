package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// volcSuccess is the X-Api-Status-Code value of a successful recognition.
const volcSuccess = "20000000"

// notGranted is the message returned when the flash resource is not enabled
// for the account.
const notGranted = "requested resource not granted"

// VolcengineProvider calls the Volcengine big-model flash recognition API
// with the whole recording in one request.
type VolcengineProvider struct {
	cfg    config.VolcengineConfig
	client *http.Client
	logger *zap.Logger
	newID  func() string
}

// NewVolcengineProvider creates the cloud provider.
func NewVolcengineProvider(cfg config.VolcengineConfig, logger *zap.Logger) *VolcengineProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VolcengineProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logging.OrNop(logger),
		newID:  func() string { return uuid.NewString() },
	}
}

func (p *VolcengineProvider) Name() string { return config.ProviderVolcengine }

type volcRequest struct {
	User    volcUser    `json:"user"`
	Audio   volcAudio   `json:"audio"`
	Request volcOptions `json:"request"`
}

type volcUser struct {
	UID string `json:"uid"`
}

type volcAudio struct {
	Format  string `json:"format"`
	Rate    int    `json:"rate"`
	Bits    int    `json:"bits"`
	Channel int    `json:"channel"`
	Data    string `json:"data"`
}

type volcOptions struct {
	ModelName  string `json:"model_name"`
	EnableITN  bool   `json:"enable_itn"`
	EnablePunc bool   `json:"enable_punc"`
	ReqID      string `json:"reqid"`
}

type volcResponse struct {
	Result *struct {
		Text *string `json:"text"`
	} `json:"result"`
}

// Transcribe posts the base64 WAV container and reads the application
// status from the response headers.
func (p *VolcengineProvider) Transcribe(ctx context.Context, c *audio.Container) (Result, error) {
	if p.cfg.AppKey == "" {
		return Result{}, p.fail(KindUnavailable, "", "missing app key", nil)
	}
	if c.Empty() {
		return Result{Provider: p.Name()}, nil
	}

	start := time.Now()
	reqID := p.newID()

	body, err := json.Marshal(volcRequest{
		User: volcUser{UID: p.cfg.UID},
		Audio: volcAudio{
			Format:  "wav",
			Rate:    c.SampleRate,
			Bits:    c.BitDepth,
			Channel: c.Channels,
			Data:    base64.StdEncoding.EncodeToString(c.WAV),
		},
		Request: volcOptions{
			ModelName:  p.cfg.ModelName,
			EnableITN:  true,
			EnablePunc: true,
			ReqID:      reqID,
		},
	})
	if err != nil {
		return Result{}, p.fail(KindInput, "", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, p.fail(KindTransport, "", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-App-Key", p.cfg.AppKey)
	req.Header.Set("X-Api-Access-Key", p.cfg.AccessKey)
	req.Header.Set("X-Api-Resource-Id", p.cfg.ResourceID)
	req.Header.Set("X-Api-Request-Id", reqID)
	req.Header.Set("X-Api-Sequence", "-1")

	p.logger.Debug("volcengine request", zap.String("request_id", reqID), zap.Int("audio_bytes", len(c.WAV)))

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, p.fail(KindTransport, "", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, p.fail(KindTransport, "", "read response", err)
	}

	status := resp.Header.Get("X-Api-Status-Code")
	if status != volcSuccess {
		message := resp.Header.Get("X-Api-Message")
		if message == "" {
			message = "Unknown Error"
		}
		if status == "" {
			status = fmt.Sprintf("http %d", resp.StatusCode)
		}
		e := p.fail(KindProvider, status, message, nil)
		if strings.Contains(message, notGranted) {
			e.Hint = "Please enable Flash/Turbo recognition in the Volcengine console!"
		}
		p.logger.Warn("volcengine rejected request",
			zap.String("request_id", reqID),
			zap.String("status", status),
			zap.String("message", message),
		)
		return Result{}, e
	}

	var parsed volcResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Result{}, p.fail(KindTransport, status, "malformed response", err)
	}
	if parsed.Result == nil || parsed.Result.Text == nil {
		return Result{}, p.fail(KindProvider, status, "no text in response: "+truncate(string(payload), 200), nil)
	}

	return Result{
		Provider: p.Name(),
		Text:     *parsed.Result.Text,
		Latency:  time.Since(start),
	}, nil
}

func (p *VolcengineProvider) fail(kind Kind, code, detail string, err error) *Error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		detail = "request timed out"
	}
	return &Error{Provider: p.Name(), Kind: kind, Code: code, Detail: detail, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
