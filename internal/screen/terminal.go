package screen

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Terminal previews frames on a console with ANSI colour blocks. One block
// stands for a 2x2 pixel cell.
type Terminal struct {
	w       io.Writer
	palette *ansi256.Palette
	frame   image.Image
	buf     bytes.Buffer
}

// NewTerminal returns a panel writing to w, or to stdout when w is nil.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Terminal{w: w, palette: ansi256.Default}
}

func (t *Terminal) Init() error { return nil }

func (t *Terminal) PushFrame(img image.Image) error {
	t.frame = img
	return nil
}

// Present writes the last frame.
func (t *Terminal) Present() error {
	if t.frame == nil {
		return nil
	}
	b := t.frame.Bounds()
	t.buf.Reset()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			c := color.NRGBAModel.Convert(t.frame.At(x, y)).(color.NRGBA)
			_, _ = io.WriteString(&t.buf, t.palette.Block(c))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, err := t.buf.WriteTo(t.w)
	return err
}

func (t *Terminal) Sleep() error { return nil }

func (t *Terminal) Bounds() image.Rectangle {
	return image.Rectangle{Max: Canvas}
}

func (t *Terminal) String() string {
	return "Terminal"
}
