package button

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/gpio"
)

// PollInterval is the key sampling cadence.
const PollInterval = 10 * time.Millisecond

// Sender accepts completed gestures. event.Queue satisfies it.
type Sender interface {
	Send(PressedKeyInfo) error
}

// Poller samples the key bank and forwards gestures to a Sender.
type Poller struct {
	reader     gpio.Reader
	classifier *Classifier
	out        Sender
	log        logr.Logger
	now        func() time.Time
	busy       atomic.Bool
}

// NewPoller creates a poller reading keys from reader.
func NewPoller(reader gpio.Reader, cfg Config, out Sender, log logr.Logger) *Poller {
	return &Poller{
		reader:     reader,
		classifier: NewClassifier(cfg),
		out:        out,
		log:        log,
		now:        time.Now,
	}
}

// Run polls every PollInterval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	return p.loop(ctx, ticker.C)
}

func (p *Poller) loop(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("key poller exit")
			return nil
		case <-tick:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	pressed, err := p.reader.Read()
	if err != nil {
		p.log.Error(err, "key read failed")
		return
	}
	for _, info := range p.classifier.Process(Input{Pressed: pressed, Time: p.now()}) {
		p.log.V(1).Info("key gesture", "key", info.KeyIndex, "click", info.Click)
		if err := p.out.Send(info); err != nil {
			// Dropped, not retried; the key keeps being polled.
			p.log.Error(err, "key msg send failed", "key", info.KeyIndex)
		}
	}
	p.busy.Store(p.classifier.Busy())
}

// Busy reports whether, as of the last poll, a key was down or a click
// sequence was still open. It is safe to call from any goroutine.
func (p *Poller) Busy() bool {
	return p.busy.Load()
}
