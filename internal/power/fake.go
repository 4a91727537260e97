package power

import (
	"context"
	"sync"
	"time"
)

// FakeSleeper records sleep requests without blocking.
type FakeSleeper struct {
	mu    sync.Mutex
	Light []time.Duration
	Deep  []time.Duration

	// DeepErr, if set, is returned by DeepSleep.
	DeepErr error

	// OnSleep, if set, runs after every recorded sleep.
	OnSleep func()
}

// LightSleep records d and returns immediately unless ctx is done.
func (f *FakeSleeper) LightSleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.Light = append(f.Light, d)
	hook := f.OnSleep
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ctx.Err()
}

// DeepSleep records d.
func (f *FakeSleeper) DeepSleep(d time.Duration) error {
	f.mu.Lock()
	f.Deep = append(f.Deep, d)
	hook, err := f.OnSleep, f.DeepErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}
