package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/event"
)

// PollInterval is how often the task checks its queue and beep deadline.
const PollInterval = 100 * time.Millisecond

// Task owns the audio backend. At most one beep sounds at a time: a beep is
// active until its deadline passes, and beeps arriving meanwhile are dropped.
type Task struct {
	backend  Backend
	log      logr.Logger
	now      func() time.Time
	deadline time.Time
}

// NewTask creates an audio task.
func NewTask(backend Backend, log logr.Logger) *Task {
	return &Task{backend: backend, log: log, now: time.Now}
}

// Beeping reports whether a beep is active.
func (t *Task) Beeping() bool {
	return !t.deadline.IsZero()
}

// Handle executes one command.
func (t *Task) Handle(cmd Command) error {
	switch cmd := cmd.(type) {
	case Beep:
		return t.beep(cmd)
	case PlayFile:
		t.backend.StopMedia()
		if err := t.backend.PlayFile(cmd.Path); err != nil {
			return fmt.Errorf("play %s: %w", cmd.Path, err)
		}
		t.log.Info("playing", "path", cmd.Path)
		return nil
	default:
		return fmt.Errorf("unknown audio command %T", cmd)
	}
}

func (t *Task) beep(b Beep) error {
	if t.Beeping() {
		t.log.Info("beep still running, dropped", "repeat", b.Repeat, "unit", b.Unit)
		return nil
	}
	if b.Repeat <= 0 || b.Unit <= 0 {
		return nil
	}
	if err := t.backend.PlayTone(ToneFrequency); err != nil {
		return fmt.Errorf("play tone: %w", err)
	}
	t.deadline = t.now().Add(time.Duration(b.Repeat) * b.Unit)
	t.log.V(1).Info("beep", "repeat", b.Repeat, "unit", b.Unit)
	return nil
}

// expire stops the tone once its deadline has passed.
func (t *Task) expire() {
	if t.Beeping() && !t.now().Before(t.deadline) {
		t.backend.StopTone()
		t.deadline = time.Time{}
	}
}

// Run polls q until ctx is done or q is closed. On cancellation queued
// commands are discarded and all output stops.
func (t *Task) Run(ctx context.Context, q *event.Queue[Command]) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	return t.loop(ctx, q, ticker.C)
}

func (t *Task) loop(ctx context.Context, q *event.Queue[Command], tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			t.drain(q)
			return nil
		case <-tick:
		}

		t.expire()
		for {
			cmd, ok, err := q.TryRecv()
			if errors.Is(err, event.ErrClosed) {
				t.stop()
				return nil
			}
			if !ok {
				break
			}
			if err := t.Handle(cmd); err != nil {
				t.log.Error(err, "audio command")
			}
		}
	}
}

func (t *Task) drain(q *event.Queue[Command]) {
	n := 0
	for {
		_, ok, _ := q.TryRecv()
		if !ok {
			break
		}
		n++
	}
	if n > 0 {
		t.log.Info("discarded audio commands", "count", n)
	}
	t.stop()
}

func (t *Task) stop() {
	t.backend.StopAll()
	t.deadline = time.Time{}
}
