package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// Panel is the physical (or simulated) display. Show receives a landscape
// Width x Height canvas.
type Panel interface {
	Init() error
	Show(img *image.Gray) error
	Sleep() error
	Close() error
}

// Waveshare drives a Waveshare 2.13" V4 e-paper HAT over SPI.
type Waveshare struct {
	port spi.PortCloser
	dev  *waveshare2in13v4.Dev
}

// NewWaveshare opens the default SPI port and the HAT.
func NewWaveshare() (*Waveshare, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("open spi: %w", err)
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("open epd hat: %w", err)
	}
	return &Waveshare{port: port, dev: dev}, nil
}

// Init wakes the controller and clears the panel.
func (w *Waveshare) Init() error {
	if err := w.dev.Init(); err != nil {
		return fmt.Errorf("epd init: %w", err)
	}
	if err := w.dev.Clear(color.White); err != nil {
		return fmt.Errorf("epd clear: %w", err)
	}
	return nil
}

// Show rotates the canvas to the panel's portrait layout and refreshes.
func (w *Waveshare) Show(img *image.Gray) error {
	bounds := w.dev.Bounds()
	buf := image1bit.NewVerticalLSB(bounds)
	draw.Draw(buf, bounds, toPortrait(img), image.Point{}, draw.Src)
	if err := w.dev.Draw(bounds, buf, image.Point{}); err != nil {
		return fmt.Errorf("epd draw: %w", err)
	}
	return nil
}

// Sleep puts the controller into deep sleep.
func (w *Waveshare) Sleep() error {
	return w.dev.Sleep()
}

// Close halts the device and releases SPI.
func (w *Waveshare) Close() error {
	herr := w.dev.Halt()
	perr := w.port.Close()
	if herr != nil {
		return fmt.Errorf("epd halt: %w", herr)
	}
	return perr
}

// toPortrait rotates a landscape canvas 90° clockwise.
func toPortrait(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := 0; y < b.Dx(); y++ {
		for x := 0; x < b.Dy(); x++ {
			dst.SetGray(x, y, src.GrayAt(b.Min.X+y, b.Max.Y-1-x))
		}
	}
	return dst
}

// PNGPanel writes every refresh to a PNG file, for development without a
// panel.
type PNGPanel struct {
	Path string
}

func (p *PNGPanel) Init() error { return nil }

// Show writes img to Path atomically.
func (p *PNGPanel) Show(img *image.Gray) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create png dir: %w", err)
	}
	tmp := p.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return os.Rename(tmp, p.Path)
}

func (p *PNGPanel) Sleep() error { return nil }
func (p *PNGPanel) Close() error { return nil }
