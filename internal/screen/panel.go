package screen

import (
	"image"
)

// Panel is the display hardware as the screen task sees it. Every redraw
// runs Init, PushFrame, Present and Sleep in that order.
type Panel interface {
	Init() error
	PushFrame(img image.Image) error
	Present() error
	Sleep() error
	Bounds() image.Rectangle
}

// Orient prepares a landscape frame for a panel with the given bounds. A
// portrait panel gets the frame rotated a quarter turn clockwise.
func Orient(frame image.Image, bounds image.Rectangle) image.Image {
	fb := frame.Bounds()
	if (bounds.Dx() < bounds.Dy()) == (fb.Dx() < fb.Dy()) {
		return frame
	}
	dst := image.NewGray(image.Rect(0, 0, fb.Dy(), fb.Dx()))
	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			dst.Set(x, y, frame.At(fb.Min.X+y, fb.Max.Y-1-x))
		}
	}
	return dst
}
