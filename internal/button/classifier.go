package button

import "time"

// Classifier turns per-key level samples into click gestures.
type Classifier struct {
	cfg  Config
	keys []keyState
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Process takes one poll of every key and returns the gestures that
// completed on this tick, in key index order. A key's detector is reset
// after it reports.
func (c *Classifier) Process(in Input) []PressedKeyInfo {
	for len(c.keys) < len(in.Pressed) {
		c.keys = append(c.keys, keyState{})
	}

	var out []PressedKeyInfo
	for idx, raw := range in.Pressed {
		k := &c.keys[idx]
		if changed, level := c.debounce(k, raw, in.Time); changed {
			c.edge(k, level, in.Time)
		}
		if kind := c.complete(k, in.Time); kind != ClickNone {
			out = append(out, PressedKeyInfo{KeyIndex: idx, Click: kind})
		}
	}
	return out
}

// debounce reports an accepted level change once raw has held a new level
// for the debounce duration.
func (c *Classifier) debounce(k *keyState, raw bool, now time.Time) (bool, bool) {
	if raw == k.Stable {
		// Bounce back to the stable level, drop the candidate
		k.HasPending = false
		return false, k.Stable
	}
	if !k.HasPending || k.Pending != raw {
		k.Pending = raw
		k.HasPending = true
		k.PendingSince = now
	}
	if now.Sub(k.PendingSince) < c.cfg.Debounce {
		return false, k.Stable
	}
	k.Stable = raw
	k.HasPending = false
	return true, raw
}

// edge applies an accepted press or release to the gesture in progress.
func (c *Classifier) edge(k *keyState, pressed bool, now time.Time) {
	if pressed {
		k.PressedAt = now
		return
	}
	if now.Sub(k.PressedAt) > c.cfg.HoldLimit {
		// A hold cancels the whole gesture.
		k.Clicks = 0
		return
	}
	k.Clicks++
	k.ReleasedAt = now
}

// complete returns the finished gesture, if any, and resets the key.
func (c *Classifier) complete(k *keyState, now time.Time) ClickKind {
	if k.Clicks == 0 || k.Stable || k.HasPending {
		return ClickNone
	}
	if now.Sub(k.ReleasedAt) < c.cfg.ReleaseWindow {
		return ClickNone
	}
	n := k.Clicks
	k.Clicks = 0
	switch {
	case n == 1:
		return ClickSingle
	case n == 2:
		return ClickDouble
	default:
		return ClickTriple
	}
}

// Busy reports whether any key is pressed or has a gesture in progress.
func (c *Classifier) Busy() bool {
	for _, k := range c.keys {
		if k.Stable || k.HasPending || k.Clicks > 0 {
			return true
		}
	}
	return false
}
