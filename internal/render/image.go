package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sweeney/weather-epd/internal/fetch"
	"github.com/sweeney/weather-epd/internal/gpio"
	"github.com/sweeney/weather-epd/internal/log"
)

const (
	black = 0x00
	white = 0xff
)

var face = basicfont.Face7x13

// ImageRenderer composes screens on a grayscale canvas and hands them to a
// Panel. The display supply rail is switched through power when set.
type ImageRenderer struct {
	panel Panel
	power gpio.Switch

	powered bool
}

// NewImageRenderer returns a renderer for panel. power may be nil.
func NewImageRenderer(panel Panel, power gpio.Switch) *ImageRenderer {
	return &ImageRenderer{panel: panel, power: power}
}

func (r *ImageRenderer) show(img *image.Gray) error {
	if !r.powered {
		if r.power != nil {
			if err := r.power.SetDisplayPower(true); err != nil {
				return fmt.Errorf("display power on: %w", err)
			}
		}
		if err := r.panel.Init(); err != nil {
			return err
		}
		r.powered = true
	}
	return r.panel.Show(img)
}

// PowerOff sleeps the panel and cuts its supply. Safe to call when the
// panel was never powered.
func (r *ImageRenderer) PowerOff() error {
	if !r.powered {
		return nil
	}
	r.powered = false

	var errs []error
	if err := r.panel.Sleep(); err != nil {
		errs = append(errs, fmt.Errorf("panel sleep: %w", err))
	}
	if r.power != nil {
		if err := r.power.SetDisplayPower(false); err != nil {
			errs = append(errs, fmt.Errorf("display power off: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("power off: %w", errors.Join(errs...))
	}
	return nil
}

// DrawError draws icon with one or two centred lines of text.
func (r *ImageRenderer) DrawError(icon Icon, line1, line2 string) error {
	logger := log.WithComponent("render")
	logger.Info().Str("icon", icon.String()).Str("line1", line1).Str("line2", line2).Msg("drawing error screen")
	return r.show(ErrorCanvas(icon, line1, line2))
}

// DrawWeather draws the full weather screen.
func (r *ImageRenderer) DrawWeather(s Screen) error {
	logger := log.WithComponent("render")
	logger.Info().Str("city", s.City).Msg("drawing weather screen")
	return r.show(WeatherCanvas(s))
}

func newCanvas() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	fill(img, img.Bounds(), white)
	return img
}

// ErrorCanvas lays out an error screen.
func ErrorCanvas(icon Icon, line1, line2 string) *image.Gray {
	img := newCanvas()

	iconBox := image.Rect(Width/2-24, 8, Width/2+24, 56)
	drawIcon(img, icon, iconBox)

	y := 80
	textCentered(img, Width/2, y, line1, 1)
	if line2 != "" {
		textCentered(img, Width/2, y+18, line2, 1)
	}
	return img
}

// WeatherCanvas lays out the weather screen.
func WeatherCanvas(s Screen) *image.Gray {
	img := newCanvas()

	text(img, 2, 11, truncate(s.City, 16), 1)
	textRight(img, Width-2, 11, truncate(s.Date, 17))
	hline(img, 0, Width-1, 14)

	if f := s.Forecast; f != nil {
		c := f.Current
		text(img, 4, 42, fmt.Sprintf("%.0f°C", c.Temp), 2)
		text(img, 4, 56, truncate(c.Condition.Description, 17), 1)

		x := 128
		text(img, x, 26, fmt.Sprintf("Feels %.0f°", c.FeelsLike), 1)
		text(img, x, 38, fmt.Sprintf("Hum %d%%", c.Humidity), 1)
		text(img, x, 50, fmt.Sprintf("Wind %.0fm/s %s", c.WindSpeed, compass(c.WindDeg)), 1)
		if aq := s.AirQuality; aq != nil {
			text(img, x, 62, fmt.Sprintf("AQI %d", aq.AQI), 1)
		}
		if m := s.Moon; m != nil {
			text(img, 4, 68, truncate(m.PhaseName(), 17), 1)
		}

		hline(img, 0, Width-1, 72)
		colW := Width / fetch.NumDaily
		for i, d := range f.Daily {
			if i == fetch.NumDaily {
				break
			}
			cx := i*colW + colW/2
			textCentered(img, cx, 85, d.Time.Format("Mon"), 1)
			textCentered(img, cx, 98, fmt.Sprintf("%.0f/%.0f", d.TempMax, d.TempMin), 1)
		}
	}

	hline(img, 0, Width-1, 106)
	text(img, 2, 119, truncate(statusBar(s), 35), 1)
	return img
}

func statusBar(s Screen) string {
	var parts []string
	if s.Status != "" {
		parts = append(parts, s.Status)
	}
	if s.RefreshTime != "" {
		parts = append(parts, s.RefreshTime)
	}
	if s.RSSI != 0 {
		parts = append(parts, fmt.Sprintf("%ddBm", s.RSSI))
	}
	if s.BatteryMillivolts != 0 {
		parts = append(parts, fmt.Sprintf("%.2fV %d%%", float64(s.BatteryMillivolts)/1000, s.BatteryPercent))
	}
	return strings.Join(parts, " ")
}

func compass(deg int) string {
	dirs := [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	i := int(math.Round(float64(((deg%360)+360)%360)/45)) % 8
	return dirs[i]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// text draws s with its baseline at y, scaled by an integer factor.
func text(img *image.Gray, x, y int, s string, scale int) {
	if scale <= 1 {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.Gray{Y: black}),
			Face: face,
			Dot:  fixed.P(x, y),
		}
		d.DrawString(s)
		return
	}

	m := face.Metrics()
	w, h := textWidth(s), (m.Ascent + m.Descent).Ceil()
	small := image.NewGray(image.Rect(0, 0, w, h))
	fill(small, small.Bounds(), white)
	text(small, 0, m.Ascent.Ceil(), s, 1)

	top := y - m.Ascent.Ceil()*scale
	dst := image.Rect(x, top, x+w*scale, top+h*scale)
	xdraw.NearestNeighbor.Scale(img, dst, small, small.Bounds(), xdraw.Over, nil)
}

func textCentered(img *image.Gray, cx, y int, s string, scale int) {
	text(img, cx-textWidth(s)*scale/2, y, s, scale)
}

func textRight(img *image.Gray, right, y int, s string) {
	text(img, right-textWidth(s), y, s, 1)
}

func fill(img *image.Gray, r image.Rectangle, c uint8) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: c})
		}
	}
}

func hline(img *image.Gray, x0, x1, y int) {
	fill(img, image.Rect(x0, y, x1+1, y+1), black)
}

func vline(img *image.Gray, x, y0, y1 int) {
	fill(img, image.Rect(x, y0, x+1, y1+1), black)
}

func outline(img *image.Gray, r image.Rectangle) {
	hline(img, r.Min.X, r.Max.X-1, r.Min.Y)
	hline(img, r.Min.X, r.Max.X-1, r.Max.Y-1)
	vline(img, r.Min.X, r.Min.Y, r.Max.Y-1)
	vline(img, r.Max.X-1, r.Min.Y, r.Max.Y-1)
}
