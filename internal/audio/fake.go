package audio

import (
	"fmt"
	"sync"
)

// FakeBackend records backend calls for tests.
type FakeBackend struct {
	mu      sync.Mutex
	calls   []string
	ToneOn  bool
	Media   string
	FileErr error
}

func (f *FakeBackend) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *FakeBackend) PlayTone(freq float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("tone %.0f", freq)
	f.ToneOn = true
	return nil
}

func (f *FakeBackend) StopTone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop-tone")
	f.ToneOn = false
}

func (f *FakeBackend) PlayFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play %s", path)
	if f.FileErr != nil {
		return f.FileErr
	}
	f.Media = path
	return nil
}

func (f *FakeBackend) StopMedia() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop-media")
	f.Media = ""
}

func (f *FakeBackend) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop-all")
	f.ToneOn = false
	f.Media = ""
}

// Calls returns the recorded calls in order.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Tones counts PlayTone calls.
func (f *FakeBackend) Tones() int {
	n := 0
	for _, c := range f.Calls() {
		if len(c) > 5 && c[:5] == "tone " {
			n++
		}
	}
	return n
}

var _ Backend = (*FakeBackend)(nil)
