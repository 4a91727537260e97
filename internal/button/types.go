// Package button classifies debounced key presses into click gestures.
// The Classifier has no dependency on GPIO or wall-clock time: every sample
// carries its own timestamp, so the state machine is fully testable.
package button

import "time"

// ClickKind is the classification of a completed gesture.
type ClickKind int

const (
	ClickNone ClickKind = iota
	ClickSingle
	ClickDouble
	ClickTriple
)

func (c ClickKind) String() string {
	switch c {
	case ClickSingle:
		return "SINGLE"
	case ClickDouble:
		return "DOUBLE"
	case ClickTriple:
		return "TRIPLE"
	default:
		return "NONE"
	}
}

// Clicks returns the click count the kind stands for.
func (c ClickKind) Clicks() int {
	return int(c)
}

// PressedKeyInfo is produced once per completed gesture.
type PressedKeyInfo struct {
	KeyIndex int
	Click    ClickKind
}

// Input is one poll of every key, in key index order.
type Input struct {
	Pressed []bool // true = pressed (already inverted from raw GPIO)
	Time    time.Time
}

// Config holds the gesture timing thresholds.
type Config struct {
	// Debounce is how long a new level must persist before it is accepted.
	Debounce time.Duration
	// ReleaseWindow is how long after a release a further press still
	// extends the current gesture.
	ReleaseWindow time.Duration
	// HoldLimit is the longest press that still counts as a click.
	HoldLimit time.Duration
}

// DefaultConfig returns the thresholds used on the device.
func DefaultConfig() Config {
	return Config{
		Debounce:      20 * time.Millisecond,
		ReleaseWindow: 150 * time.Millisecond,
		HoldLimit:     500 * time.Millisecond,
	}
}

// keyState tracks debounce and click counting for a single key.
type keyState struct {
	// Current stable (debounced) level
	Stable bool
	// Level awaiting debounce, valid when HasPending
	Pending      bool
	HasPending   bool
	PendingSince time.Time

	// Clicks counted in the gesture in progress
	Clicks     int
	PressedAt  time.Time
	ReleasedAt time.Time
}
