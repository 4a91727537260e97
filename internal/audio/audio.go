// Package audio runs the speaker: short beeps for feedback and WAV media
// playback.
package audio

import (
	"time"
)

// Command is a request for the audio task: Beep or PlayFile.
type Command interface {
	audioCommand()
}

// Beep sounds the tone for Repeat periods of Unit.
type Beep struct {
	Repeat int
	Unit   time.Duration
}

// PlayFile plays a WAV file, replacing any media already playing.
type PlayFile struct {
	Path string
}

func (Beep) audioCommand()     {}
func (PlayFile) audioCommand() {}

// Backend is the audio output. Tones and media play on separate voices.
type Backend interface {
	PlayTone(freq float64) error
	StopTone()
	PlayFile(path string) error
	StopMedia()
	StopAll()
}

// ToneFrequency is the beep pitch in Hz.
const ToneFrequency = 2700.0

// KeyBeep is the feedback for a key press.
var KeyBeep = Beep{Repeat: 1, Unit: 150 * time.Millisecond}

// Discard is a Backend that plays nothing.
type Discard struct{}

func (Discard) PlayTone(float64) error { return nil }
func (Discard) StopTone()              {}
func (Discard) PlayFile(string) error  { return nil }
func (Discard) StopMedia()             {}
func (Discard) StopAll()               {}
