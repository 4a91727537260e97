package screen

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
)

// Waveshare drives the 2.13" V4 e-paper HAT. host.Init must have run.
type Waveshare struct {
	port spi.PortCloser
	dev  *waveshare2in13v4.Dev
	buf  *image1bit.VerticalLSB
}

// OpenWaveshare opens the HAT on the named SPI port ("" for the first).
func OpenWaveshare(portName string) (*Waveshare, error) {
	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", portName, err)
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open e-paper: %w", err)
	}
	return &Waveshare{
		port: port,
		dev:  dev,
		buf:  image1bit.NewVerticalLSB(dev.Bounds()),
	}, nil
}

// Init wakes the controller. It is needed after every Sleep.
func (w *Waveshare) Init() error {
	return w.dev.Init()
}

// PushFrame converts img into the 1-bit frame buffer.
func (w *Waveshare) PushFrame(img image.Image) error {
	draw.Draw(w.buf, w.buf.Bounds(), img, img.Bounds().Min, draw.Src)
	return nil
}

// Present uploads the frame buffer and runs a full refresh.
func (w *Waveshare) Present() error {
	return w.dev.Draw(w.dev.Bounds(), w.buf, image.Point{})
}

// Sleep puts the controller into deep sleep. The image stays on the panel.
func (w *Waveshare) Sleep() error {
	return w.dev.Sleep()
}

// Bounds is the panel in its native portrait orientation.
func (w *Waveshare) Bounds() image.Rectangle {
	return w.dev.Bounds()
}

// Close releases the SPI port.
func (w *Waveshare) Close() error {
	return errors.Join(w.dev.Sleep(), w.port.Close())
}

func (w *Waveshare) String() string {
	return w.dev.String()
}
