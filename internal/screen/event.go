// Package screen owns the e-paper panel. It applies screen events to a small
// page state machine and redraws only when the result would differ.
package screen

import (
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Event is a message for the screen task: Refresh, UpdateSensorSnapshot,
// Popup or Flush.
type Event interface {
	screenEvent()
}

// Refresh asks for Page to be shown.
type Refresh struct {
	Page page.ActivePage
}

// UpdateSensorSnapshot replaces the cached sensor data. It never redraws.
type UpdateSensorSnapshot struct {
	Data sensor.Snapshot
}

// Popup draws a message box over the page on screen.
type Popup struct {
	Title   string
	Message string
}

// Flush closes Done once every earlier event has been applied.
type Flush struct {
	Done chan struct{}
}

func (Refresh) screenEvent()              {}
func (UpdateSensorSnapshot) screenEvent() {}
func (Popup) screenEvent()                {}
func (Flush) screenEvent()                {}
