package button

import (
	"strings"
	"testing"
	"time"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type emitted struct {
	at   time.Duration
	info PressedKeyInfo
}

// feed runs one pattern per key through a classifier, one character per
// 10 ms poll ('1' = pressed), and records every emitted gesture.
func feed(t *testing.T, c *Classifier, patterns ...string) []emitted {
	t.Helper()
	n := len(patterns[0])
	for _, p := range patterns {
		if len(p) != n {
			t.Fatalf("patterns must be the same length: %d vs %d", len(p), n)
		}
	}
	var out []emitted
	for i := 0; i < n; i++ {
		at := time.Duration(i) * PollInterval
		pressed := make([]bool, len(patterns))
		for k, p := range patterns {
			pressed[k] = p[i] == '1'
		}
		for _, info := range c.Process(Input{Pressed: pressed, Time: start.Add(at)}) {
			out = append(out, emitted{at: at, info: info})
		}
	}
	return out
}

func idle(n int) string { return strings.Repeat("0", n) }
func held(n int) string { return strings.Repeat("1", n) }

func TestClassifierGestures(t *testing.T) {
	click := held(5) + idle(5)
	tests := []struct {
		name    string
		pattern string
		want    ClickKind
	}{
		{"single", idle(4) + held(5) + idle(20), ClickSingle},
		{"double", idle(4) + click + held(5) + idle(20), ClickDouble},
		{"triple", idle(4) + click + click + held(5) + idle(20), ClickTriple},
		{"four clicks report triple", idle(4) + click + click + click + held(5) + idle(20), ClickTriple},
		{"bouncy press", idle(4) + "10" + held(5) + idle(20), ClickSingle},
		{"bouncy release", idle(4) + held(5) + "0101" + idle(20), ClickSingle},
		{"shortest accepted press", idle(4) + held(3) + idle(20), ClickSingle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feed(t, NewClassifier(DefaultConfig()), tt.pattern)
			if len(got) != 1 {
				t.Fatalf("expected exactly 1 gesture, got %d: %+v", len(got), got)
			}
			if got[0].info.Click != tt.want {
				t.Errorf("click: got %v, want %v", got[0].info.Click, tt.want)
			}
			if got[0].info.KeyIndex != 0 {
				t.Errorf("key: got %d, want 0", got[0].info.KeyIndex)
			}
		})
	}
}

func TestClassifierNoGesture(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"idle", idle(40)},
		{"glitch shorter than debounce", idle(4) + "1" + idle(30)},
		{"two sample glitch", idle(4) + held(2) + idle(30)},
		{"chatter", idle(4) + "1010101010" + idle(30)},
		{"hold", idle(4) + held(60) + idle(30)},
		{"still in release window", idle(4) + held(5) + idle(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := feed(t, NewClassifier(DefaultConfig()), tt.pattern); len(got) != 0 {
				t.Errorf("expected no gestures, got %+v", got)
			}
		})
	}
}

func TestClassifierSingleTiming(t *testing.T) {
	// Press seen at 40ms, accepted at 60ms. Release seen at 90ms, accepted
	// at 110ms. Gesture completes 150ms after the accepted release.
	got := feed(t, NewClassifier(DefaultConfig()), idle(4)+held(5)+idle(20))
	if len(got) != 1 {
		t.Fatalf("expected 1 gesture, got %d", len(got))
	}
	if got[0].at != 260*time.Millisecond {
		t.Errorf("emitted at %v, want 260ms", got[0].at)
	}
}

func TestClassifierResetsAfterGesture(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	p := idle(4) + held(5) + idle(20)
	first := feed(t, c, p)
	second := feed(t, c, p)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one gesture per run, got %d and %d", len(first), len(second))
	}
	if second[0].info.Click != ClickSingle {
		t.Errorf("second gesture: got %v, want SINGLE", second[0].info.Click)
	}
	if c.Busy() {
		t.Error("classifier should be idle after the gesture completes")
	}
}

func TestClassifierMultipleKeysSameTick(t *testing.T) {
	p := idle(4) + held(5) + idle(20)
	got := feed(t, NewClassifier(DefaultConfig()), p, idle(len(p)), p)
	if len(got) != 2 {
		t.Fatalf("expected 2 gestures, got %d: %+v", len(got), got)
	}
	if got[0].at != got[1].at {
		t.Errorf("gestures should complete on the same tick: %v vs %v", got[0].at, got[1].at)
	}
	if got[0].info.KeyIndex != 0 || got[1].info.KeyIndex != 2 {
		t.Errorf("order: got keys %d,%d, want 0,2", got[0].info.KeyIndex, got[1].info.KeyIndex)
	}
}

func TestClassifierKeysIndependent(t *testing.T) {
	// Key 1 is held down for the whole run while key 0 double-clicks.
	click := held(5) + idle(5)
	p0 := idle(4) + click + held(5) + idle(20)
	p1 := held(len(p0))
	got := feed(t, NewClassifier(DefaultConfig()), p0, p1)
	if len(got) != 1 {
		t.Fatalf("expected 1 gesture, got %d: %+v", len(got), got)
	}
	if got[0].info != (PressedKeyInfo{KeyIndex: 0, Click: ClickDouble}) {
		t.Errorf("got %+v, want key 0 DOUBLE", got[0].info)
	}
}

func TestClickKindString(t *testing.T) {
	tests := map[ClickKind]string{
		ClickNone:   "NONE",
		ClickSingle: "SINGLE",
		ClickDouble: "DOUBLE",
		ClickTriple: "TRIPLE",
	}
	for k, want := range tests {
		if k.String() != want {
			t.Errorf("%d: got %q, want %q", int(k), k.String(), want)
		}
		if k.Clicks() != int(k) {
			t.Errorf("%v.Clicks() = %d", k, k.Clicks())
		}
	}
}
