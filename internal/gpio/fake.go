package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted pin values.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted bank values. Each call to Read consumes
	// the next sample; the last one repeats once the script runs out.
	Samples [][]bool

	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...[]bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	out := make([]bool, len(s))
	copy(out, s)
	return out, nil
}

// Set replaces the script with a single repeating sample.
func (f *FakeReader) Set(sample ...bool) {
	f.mu.Lock()
	f.Samples = [][]bool{sample}
	f.index = 0
	f.mu.Unlock()
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
