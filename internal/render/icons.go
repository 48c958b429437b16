package render

import (
	"image"
	"image/color"
	"math"
)

// drawIcon draws a simple line-art glyph inside box.
func drawIcon(img *image.Gray, icon Icon, box image.Rectangle) {
	switch icon {
	case IconBattery:
		drawBattery(img, box)
	case IconWiFi:
		drawWiFi(img, box)
	case IconTime:
		drawClock(img, box)
	case IconCloud:
		drawCloud(img, box)
	}
}

// drawBattery draws an empty cell with an alert bar.
func drawBattery(img *image.Gray, b image.Rectangle) {
	body := image.Rect(b.Min.X+4, b.Min.Y+12, b.Max.X-8, b.Max.Y-12)
	outline(img, body)
	outline(img, body.Inset(1))
	tip := image.Rect(body.Max.X, body.Min.Y+8, body.Max.X+4, body.Max.Y-8)
	fill(img, tip, black)
	fill(img, image.Rect(body.Min.X+4, body.Min.Y+4, body.Min.X+8, body.Max.Y-4), black)
}

// drawWiFi draws three arcs with a cross through them.
func drawWiFi(img *image.Gray, b image.Rectangle) {
	cx, cy := (b.Min.X+b.Max.X)/2, b.Max.Y-6
	for _, r := range []float64{8, 16, 24} {
		arc(img, cx, cy, r, math.Pi*1.25, math.Pi*1.75)
	}
	disc(img, cx, cy, 3)
	for i := 0; i < b.Dx(); i++ {
		setBlack(img, b.Min.X+i, b.Min.Y+i)
		setBlack(img, b.Min.X+i+1, b.Min.Y+i)
	}
}

// drawClock draws a clock face.
func drawClock(img *image.Gray, b image.Rectangle) {
	cx, cy := (b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2
	r := float64(b.Dy())/2 - 2
	arc(img, cx, cy, r, 0, 2*math.Pi)
	arc(img, cx, cy, r-1, 0, 2*math.Pi)
	vline(img, cx, cy-int(r*0.7), cy)
	hline(img, cx, cx+int(r*0.5), cy)
}

// drawCloud draws a cloud with a down arrow.
func drawCloud(img *image.Gray, b image.Rectangle) {
	cx, cy := (b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2-4
	arc(img, cx-8, cy+2, 8, math.Pi*0.5, math.Pi*1.5)
	arc(img, cx, cy-4, 10, math.Pi, 2*math.Pi)
	arc(img, cx+10, cy+2, 8, math.Pi*1.5, math.Pi*2.5)
	hline(img, cx-8, cx+10, cy+10)
	vline(img, cx, cy+6, b.Max.Y-2)
	for i := 0; i < 5; i++ {
		setBlack(img, cx-i, b.Max.Y-2-i)
		setBlack(img, cx+i, b.Max.Y-2-i)
	}
}

func arc(img *image.Gray, cx, cy int, r, from, to float64) {
	steps := int(r * (to - from) * 2)
	if steps < 8 {
		steps = 8
	}
	for i := 0; i <= steps; i++ {
		a := from + (to-from)*float64(i)/float64(steps)
		setBlack(img, cx+int(math.Round(r*math.Cos(a))), cy+int(math.Round(r*math.Sin(a))))
	}
}

func disc(img *image.Gray, cx, cy, r int) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				setBlack(img, cx+x, cy+y)
			}
		}
	}
}

func setBlack(img *image.Gray, x, y int) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetGray(x, y, color.Gray{Y: black})
	}
}
