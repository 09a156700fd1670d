// Package output carries pipeline state to the user: a non-blocking bridge
// to whatever renders status and levels, a console renderer, and formatters
// for transcripts and history.
package output

import (
	"context"

	"github.com/emmett/murmur/internal/logging"
	"go.uber.org/zap"
)

// UI is the status surface the pipeline drives. Implementations may be
// slow; callers on the capture and input paths go through a Bridge.
type UI interface {
	UpdateStatus(recording bool)
	ShowBar()
	HideBar()
	UpdateLevel(level float64)
	Notice(msg string)
}

type controlKind int

const (
	controlStatus controlKind = iota
	controlShow
	controlHide
	controlNotice
)

type controlEvent struct {
	kind      controlKind
	recording bool
	msg       string
}

const controlQueueSize = 16

// Bridge implements UI without ever blocking the caller. Level updates keep
// only the newest value; control events queue up to a small bound and are
// dropped with a warning beyond it.
type Bridge struct {
	levels  chan float64
	control chan controlEvent
	logger  *zap.Logger
}

func NewBridge(logger *zap.Logger) *Bridge {
	return &Bridge{
		levels:  make(chan float64, 1),
		control: make(chan controlEvent, controlQueueSize),
		logger:  logging.OrNop(logger),
	}
}

func (b *Bridge) UpdateStatus(recording bool) {
	b.send(controlEvent{kind: controlStatus, recording: recording})
}

func (b *Bridge) ShowBar() { b.send(controlEvent{kind: controlShow}) }

func (b *Bridge) HideBar() { b.send(controlEvent{kind: controlHide}) }

func (b *Bridge) Notice(msg string) { b.send(controlEvent{kind: controlNotice, msg: msg}) }

// UpdateLevel replaces any level the renderer has not consumed yet.
func (b *Bridge) UpdateLevel(level float64) {
	for {
		select {
		case b.levels <- level:
			return
		default:
		}
		select {
		case <-b.levels:
		default:
		}
	}
}

func (b *Bridge) send(ev controlEvent) {
	select {
	case b.control <- ev:
	default:
		b.logger.Warn("ui event dropped, renderer is not keeping up")
	}
}

// Run delivers queued events to ui until ctx is done. Control events are
// drained before levels so a hide is never overtaken by a stale level.
func (b *Bridge) Run(ctx context.Context, ui UI) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.control:
			deliver(ui, ev)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-b.control:
			deliver(ui, ev)
		case level := <-b.levels:
			ui.UpdateLevel(level)
		}
	}
}

func deliver(ui UI, ev controlEvent) {
	switch ev.kind {
	case controlStatus:
		ui.UpdateStatus(ev.recording)
	case controlShow:
		ui.ShowBar()
	case controlHide:
		ui.HideBar()
	case controlNotice:
		ui.Notice(ev.msg)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) UpdateStatus(bool)   {}
func (Nop) ShowBar()            {}
func (Nop) HideBar()            {}
func (Nop) UpdateLevel(float64) {}
func (Nop) Notice(string)       {}
