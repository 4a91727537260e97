package button

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/gpio"
)

type recordingSender struct {
	sent []PressedKeyInfo
	err  error
}

func (s *recordingSender) Send(info PressedKeyInfo) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, info)
	return nil
}

// script converts a per-key pattern into scripted reader samples.
func script(patterns ...string) [][]bool {
	var samples [][]bool
	for i := range patterns[0] {
		s := make([]bool, len(patterns))
		for k, p := range patterns {
			s[k] = p[i] == '1'
		}
		samples = append(samples, s)
	}
	return samples
}

func newTestPoller(reader gpio.Reader, out Sender) *Poller {
	p := NewPoller(reader, DefaultConfig(), out, logr.Discard())
	now := start
	p.now = func() time.Time {
		t := now
		now = now.Add(PollInterval)
		return t
	}
	return p
}

func TestPollerForwardsGestures(t *testing.T) {
	pattern := idle(4) + held(5) + idle(5) + held(5) + idle(20)
	reader := gpio.NewFakeReader(script(idle(len(pattern)), pattern, idle(len(pattern)))...)
	out := &recordingSender{}
	p := newTestPoller(reader, out)

	for range pattern {
		p.poll()
	}

	if len(out.sent) != 1 {
		t.Fatalf("expected 1 message, got %d: %+v", len(out.sent), out.sent)
	}
	if out.sent[0] != (PressedKeyInfo{KeyIndex: 1, Click: ClickDouble}) {
		t.Errorf("got %+v, want key 1 DOUBLE", out.sent[0])
	}
}

func TestPollerSendFailureDropped(t *testing.T) {
	pattern := idle(4) + held(5) + idle(20)
	reader := gpio.NewFakeReader(script(pattern)...)
	out := &recordingSender{err: errors.New("queue closed")}
	p := newTestPoller(reader, out)

	for range pattern {
		p.poll()
	}
	// The failed gesture is gone; the next one is delivered normally.
	out.err = nil
	p.reader = gpio.NewFakeReader(script(pattern)...)
	for range pattern {
		p.poll()
	}
	if len(out.sent) != 1 || out.sent[0].Click != ClickSingle {
		t.Errorf("expected one SINGLE after recovery, got %+v", out.sent)
	}
}

func TestPollerReadErrorSkipsTick(t *testing.T) {
	reader := gpio.NewFakeReader([]bool{false})
	reader.ReadError = errors.New("bus error")
	out := &recordingSender{}
	p := newTestPoller(reader, out)
	p.poll()
	if len(out.sent) != 0 {
		t.Errorf("expected no messages on read error, got %+v", out.sent)
	}
}

func TestPollerLoopStopsOnCancel(t *testing.T) {
	reader := gpio.NewFakeReader([]bool{false, false, false})
	p := newTestPoller(reader, &recordingSender{})
	tick := make(chan time.Time)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.loop(ctx, tick) }()

	tick <- time.Now()
	tick <- time.Now()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("loop returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after cancel")
	}
	if reader.Reads != 2 {
		t.Errorf("Reads: got %d, want 2", reader.Reads)
	}
}

func TestPollerBusyUntilGestureReported(t *testing.T) {
	pattern := idle(4) + held(5) + idle(20)
	reader := gpio.NewFakeReader(script(pattern)...)
	out := &recordingSender{}
	p := newTestPoller(reader, out)

	var busyAt []int
	for i := range pattern {
		p.poll()
		if p.Busy() {
			busyAt = append(busyAt, i)
		}
	}
	if len(busyAt) == 0 {
		t.Fatal("poller never busy during the click")
	}
	if busyAt[0] != 4 {
		t.Errorf("busy from sample %d, want 4 (first pressed sample)", busyAt[0])
	}
	if len(out.sent) != 1 {
		t.Fatalf("expected 1 gesture, got %d", len(out.sent))
	}
	if p.Busy() {
		t.Error("poller still busy after the gesture was reported")
	}
}
