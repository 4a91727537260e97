//go:build cgo

package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// Ebiten plays through the system sound device.
type Ebiten struct {
	mu    sync.Mutex
	ctx   *audio.Context
	tone  *audio.Player
	media *audio.Player
	file  *os.File
}

// NewEbiten opens the sound device at sampleRate. Only one may exist per
// process.
func NewEbiten(sampleRate int) (*Ebiten, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &Ebiten{ctx: audio.NewContext(sampleRate)}, nil
}

func (e *Ebiten) PlayTone(freq float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTone()
	p, err := e.ctx.NewPlayer(newSine(freq, e.ctx.SampleRate()))
	if err != nil {
		return err
	}
	p.Play()
	e.tone = p
	return nil
}

func (e *Ebiten) StopTone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTone()
}

func (e *Ebiten) stopTone() {
	if e.tone != nil {
		_ = e.tone.Close()
		e.tone = nil
	}
}

func (e *Ebiten) PlayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	s, err := wav.DecodeWithSampleRate(e.ctx.SampleRate(), f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode wav: %w", err)
	}
	p, err := e.ctx.NewPlayer(s)
	if err != nil {
		f.Close()
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopMedia()
	p.Play()
	e.media, e.file = p, f
	return nil
}

func (e *Ebiten) StopMedia() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopMedia()
}

func (e *Ebiten) stopMedia() {
	if e.media != nil {
		_ = e.media.Close()
		e.media = nil
	}
	if e.file != nil {
		_ = e.file.Close()
		e.file = nil
	}
}

func (e *Ebiten) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTone()
	e.stopMedia()
}

var _ Backend = (*Ebiten)(nil)
