package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emmett/murmur/internal/audio"
	"github.com/emmett/murmur/internal/config"
	"github.com/emmett/murmur/internal/history"
	"github.com/emmett/murmur/internal/hotkey"
	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/output"
	"github.com/emmett/murmur/internal/stt"
	"github.com/emmett/murmur/internal/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Capture is the microphone side of a session.
type Capture interface {
	StartCapture() error
	StopCapture() (*audio.Container, error)
}

// Refiner cleans up transcribed text. On failure it returns the input.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}

// Injector delivers text to the focused application.
type Injector interface {
	TypeText(text string) error
}

// Recorder stores finished utterances.
type Recorder interface {
	Append(ctx context.Context, e history.Entry) error
}

// Submitter runs utterance jobs off the input path.
type Submitter interface {
	Submit(job worker.Job) error
}

// Deps are the orchestrator's collaborators. UI and History may be nil.
type Deps struct {
	Capture  Capture
	Provider stt.Provider
	Refiner  Refiner
	Injector Injector
	History  Recorder
	Pool     Submitter
	UI       output.UI
}

type session struct {
	id      string
	started time.Time
}

// Orchestrator turns hotkey start/stop events into capture sessions and
// hands each finished recording to a worker for STT, refinement and
// injection.
type Orchestrator struct {
	deps          Deps
	surfaceErrors bool
	logger        *zap.Logger
	newID         func() string
	now           func() time.Time

	mu      sync.Mutex
	current *session
}

func NewOrchestrator(cfg config.PipelineConfig, deps Deps, logger *zap.Logger) *Orchestrator {
	if deps.UI == nil {
		deps.UI = output.Nop{}
	}
	return &Orchestrator{
		deps:          deps,
		surfaceErrors: cfg.SurfaceErrors,
		logger:        logging.OrNop(logger),
		newID:         uuid.NewString,
		now:           time.Now,
	}
}

// Run consumes hotkey events until ctx is done, then discards any session
// still recording.
func (o *Orchestrator) Run(ctx context.Context, events <-chan hotkey.Event) {
	for {
		select {
		case <-ctx.Done():
			o.Abort()
			return
		case ev := <-events:
			switch ev.Type {
			case hotkey.EventStart:
				o.HandleStart()
			case hotkey.EventStop:
				o.HandleStop()
			}
		}
	}
}

// HandleStart begins a capture session unless one is already recording.
func (o *Orchestrator) HandleStart() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil {
		return
	}
	if err := o.deps.Capture.StartCapture(); err != nil {
		o.logger.Error("could not start recording", zap.Error(err))
		o.deps.UI.UpdateStatus(false)
		return
	}

	o.current = &session{id: o.newID(), started: o.now()}
	o.logger.Debug("recording started", zap.String("session", o.current.id))
	o.deps.UI.UpdateStatus(true)
	o.deps.UI.ShowBar()
}

// HandleStop ends the current session and queues its audio. Without an
// active session it does nothing.
func (o *Orchestrator) HandleStop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.current
	if sess == nil {
		return
	}
	o.current = nil

	container, err := o.deps.Capture.StopCapture()
	o.deps.UI.HideBar()
	o.deps.UI.UpdateStatus(false)
	if err != nil {
		o.logger.Error("could not finish recording", zap.String("session", sess.id), zap.Error(err))
		return
	}
	if container == nil {
		return
	}

	o.logger.Debug("recording stopped",
		zap.String("session", sess.id),
		zap.Duration("held", o.now().Sub(sess.started)),
		zap.Float64("audio_seconds", container.Duration()),
	)

	err = o.deps.Pool.Submit(func(ctx context.Context) {
		o.process(ctx, sess, container)
	})
	if err != nil {
		o.logger.Error("utterance dropped", zap.String("session", sess.id), zap.Error(err))
	}
}

// Abort stops a recording without transcribing it.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return
	}
	o.logger.Info("discarding recording in progress", zap.String("session", o.current.id))
	o.current = nil
	if _, err := o.deps.Capture.StopCapture(); err != nil {
		o.logger.Warn("stopping capture failed", zap.Error(err))
	}
	o.deps.UI.HideBar()
	o.deps.UI.UpdateStatus(false)
}

// Active reports whether a session is recording.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil
}

func (o *Orchestrator) process(ctx context.Context, sess *session, c *audio.Container) {
	start := o.now()
	name := o.deps.Provider.Name()
	entry := history.Entry{
		SessionID:    sess.id,
		Provider:     name,
		AudioSeconds: c.Duration(),
	}
	log := o.logger.With(zap.String("session", sess.id), zap.String("provider", name))

	text, err := o.transcribe(ctx, c, &entry)
	if err != nil {
		var sttErr *stt.Error
		if errors.As(err, &sttErr) {
			log.Warn("transcription failed", zap.Stringer("kind", sttErr.Kind), zap.Error(err))
		}
	}
	entry.Text = text

	if text != "" {
		log.Debug("injecting text", zap.String("text", text))
		if err := o.deps.Injector.TypeText(text); err != nil {
			log.Error("text injection failed", zap.Error(err))
		} else {
			o.deps.UI.Notice(fmt.Sprintf("typed %d characters", len([]rune(text))))
		}
	} else {
		log.Debug("nothing to type")
	}

	entry.Latency = o.now().Sub(start)
	if o.deps.History != nil {
		if err := o.deps.History.Append(ctx, entry); err != nil {
			log.Warn("recording history failed", zap.Error(err))
		}
	}
}

// transcribe returns the text to inject. On a provider failure the text is
// the placeholder, or empty when errors are not surfaced.
func (o *Orchestrator) transcribe(ctx context.Context, c *audio.Container, entry *history.Entry) (string, error) {
	result, err := o.deps.Provider.Transcribe(ctx, c)
	if err != nil {
		sttErr := stt.AsError(entry.Provider, err)
		entry.ErrorKind = sttErr.Kind.String()
		if o.surfaceErrors {
			return sttErr.Placeholder(), sttErr
		}
		return "", sttErr
	}

	entry.RawText = result.Text
	text := result.Text
	if strings.TrimSpace(text) == "" || o.deps.Refiner == nil {
		return text, nil
	}

	refined, err := o.deps.Refiner.Refine(ctx, text)
	if err != nil {
		o.logger.Warn("refinement failed, using raw transcript", zap.Error(err))
	}
	return refined, nil
}
