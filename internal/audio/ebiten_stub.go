//go:build !cgo

package audio

import "errors"

// ErrUnavailable is returned when the binary was built without cgo and has
// no sound device support.
var ErrUnavailable = errors.New("audio: built without cgo")

// Ebiten is a stub when cgo is unavailable.
type Ebiten struct{}

func NewEbiten(int) (*Ebiten, error) { return nil, ErrUnavailable }

func (*Ebiten) PlayTone(float64) error { return ErrUnavailable }
func (*Ebiten) StopTone()              {}
func (*Ebiten) PlayFile(string) error  { return ErrUnavailable }
func (*Ebiten) StopMedia()             {}
func (*Ebiten) StopAll()               {}
