package screen

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/event"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Task owns the panel and the page currently on it.
type Task struct {
	panel    Panel
	renderer *Renderer
	log      logr.Logger

	current  page.ActivePage
	snapshot sensor.Snapshot

	// OnPageChange is called after a different page has been drawn.
	OnPageChange func(page.ActivePage) error
}

// NewTask creates a screen task. Nothing is on screen until the first
// Refresh.
func NewTask(panel Panel, r *Renderer, log logr.Logger) *Task {
	return &Task{
		panel:    panel,
		renderer: r,
		log:      log,
		current:  page.None,
	}
}

// Current returns the page on screen.
func (t *Task) Current() page.ActivePage {
	return t.current
}

// Handle applies one event.
func (t *Task) Handle(ev Event) error {
	switch ev := ev.(type) {
	case Refresh:
		return t.refresh(ev.Page)
	case UpdateSensorSnapshot:
		t.snapshot = ev.Data
		return nil
	case Popup:
		return t.render(t.current, &ev)
	case Flush:
		close(ev.Done)
		return nil
	default:
		return fmt.Errorf("unknown screen event %T", ev)
	}
}

func (t *Task) refresh(p page.ActivePage) error {
	if p == page.None {
		return nil
	}
	if p == t.current && !p.NeedsPeriodicRefresh() {
		t.log.V(1).Info("refresh skipped", "page", p)
		return nil
	}
	if err := t.render(p, nil); err != nil {
		return err
	}
	if p == t.current {
		return nil
	}
	t.log.Info("page changed", "from", t.current, "to", p)
	t.current = p
	if t.OnPageChange != nil {
		if err := t.OnPageChange(p); err != nil {
			t.log.Error(err, "save page")
		}
	}
	return nil
}

func (t *Task) render(p page.ActivePage, popup *Popup) error {
	if err := t.panel.Init(); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	frame, err := t.renderer.Compose(p, t.snapshot, popup)
	if err != nil {
		return fmt.Errorf("compose %v: %w", p, err)
	}
	if err := t.panel.PushFrame(Orient(frame, t.panel.Bounds())); err != nil {
		return fmt.Errorf("push frame: %w", err)
	}
	if err := t.panel.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	if err := t.panel.Sleep(); err != nil {
		return fmt.Errorf("sleep display: %w", err)
	}
	return nil
}

// Run applies events from q until ctx is done or q is closed and drained.
func (t *Task) Run(ctx context.Context, q *event.Queue[Event]) error {
	for {
		ev, err := q.Recv(ctx)
		if errors.Is(err, event.ErrClosed) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if err := t.Handle(ev); err != nil {
			t.log.Error(err, "screen event", "event", fmt.Sprintf("%T", ev))
		}
	}
}
