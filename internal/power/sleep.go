package power

import (
	"context"
	"time"
)

// MaxSleep stands in for an unbounded sleep on pages that only change on a
// key press.
const MaxSleep = time.Hour

// NextMinuteLeftTime returns the time from t to the next minute boundary,
// truncated to microseconds. The result is in [0, 60s).
func NextMinuteLeftTime(t time.Time) time.Duration {
	secs := time.Duration(59-t.Second()) * time.Second
	nanos := time.Duration(1e9-t.Nanosecond()) * time.Nanosecond
	d := (secs + nanos).Truncate(time.Microsecond)
	if d >= time.Minute {
		return 0
	}
	return d
}

// Sleeper suspends the device between cycles.
type Sleeper interface {
	// LightSleep blocks for d, keeping every goroutine alive. It returns
	// early with ctx.Err() on cancellation.
	LightSleep(ctx context.Context, d time.Duration) error

	// DeepSleep arms a wake-up alarm d from now and powers the board down.
	// On success it does not return: the next wake re-runs the daemon.
	DeepSleep(d time.Duration) error
}

// LightSleep is the goroutine-preserving half of every Sleeper.
func LightSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
