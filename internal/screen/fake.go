package screen

import (
	"image"
	"sync"
)

// FakePanel records panel calls for tests. Fail maps a step name ("init",
// "push", "present", "sleep") to the error that step returns.
type FakePanel struct {
	mu     sync.Mutex
	Size   image.Rectangle
	Fail   map[string]error
	calls  []string
	frames []image.Image
}

// NewFakePanel returns a landscape fake of the canvas size.
func NewFakePanel() *FakePanel {
	return &FakePanel{Size: image.Rectangle{Max: Canvas}, Fail: map[string]error{}}
}

func (f *FakePanel) step(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.Fail[name]
}

func (f *FakePanel) Init() error { return f.step("init") }

func (f *FakePanel) PushFrame(img image.Image) error {
	if err := f.step("push"); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, img)
	f.mu.Unlock()
	return nil
}

func (f *FakePanel) Present() error { return f.step("present") }

func (f *FakePanel) Sleep() error { return f.step("sleep") }

func (f *FakePanel) Bounds() image.Rectangle { return f.Size }

// Calls returns the step names called so far.
func (f *FakePanel) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Frames returns every frame pushed.
func (f *FakePanel) Frames() []image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]image.Image(nil), f.frames...)
}

// Redraws counts completed redraws.
func (f *FakePanel) Redraws() int {
	n := 0
	for _, c := range f.Calls() {
		if c == "sleep" {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (f *FakePanel) Reset() {
	f.mu.Lock()
	f.calls, f.frames = nil, nil
	f.mu.Unlock()
}
