package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/KaramelBytes/edaboard/internal/analysis"
)

// blues is a sequential colour map from light to dark, sampled at even steps.
var blues = []color.RGBA{
	{0xf7, 0xfb, 0xff, 0xff},
	{0xde, 0xeb, 0xf7, 0xff},
	{0xc6, 0xdb, 0xef, 0xff},
	{0x9e, 0xca, 0xe1, 0xff},
	{0x6b, 0xae, 0xd6, 0xff},
	{0x42, 0x92, 0xc6, 0xff},
	{0x21, 0x71, 0xb5, 0xff},
	{0x08, 0x51, 0x9c, 0xff},
	{0x08, 0x30, 0x6b, 0xff},
}

var (
	annotationColor = color.RGBA{0xd6, 0x27, 0x28, 0xff}
	undefinedColor  = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
)

// Heatmap draws the correlation matrix as an annotated grid. Values are mapped from
// [-1, 1] onto the Blues colour map.
func Heatmap(w io.Writer, m *analysis.CorrMatrix, size Size) error {
	if m == nil || len(m.Columns) == 0 {
		return ErrNoData
	}
	size = size.orDefault()
	face := basicfont.Face7x13
	n := len(m.Columns)

	labels := make([]string, n)
	labelW, labelRunes := 0, 0
	for i, c := range m.Columns {
		labels[i] = shortLabel(c, 16)
		if lw := font.MeasureString(face, labels[i]).Ceil(); lw > labelW {
			labelW = lw
		}
		if lr := len([]rune(labels[i])); lr > labelRunes {
			labelRunes = lr
		}
	}
	const (
		titleH = 30
		pad    = 10
		barW   = 16
	)
	left := labelW + 2*pad
	top := titleH + pad
	bottom := labelRunes*face.Height + 2*pad
	gridW := size.Width - left - barW - 6*pad
	gridH := size.Height - top - bottom
	cell := gridW / n
	if ch := gridH / n; ch < cell {
		cell = ch
	}
	if cell < minHeatmapCell {
		// wide matrices grow the canvas instead of shrinking cells past legibility
		cell = minHeatmapCell
		if w := left + n*cell + barW + 6*pad; w > size.Width {
			size.Width = w
		}
		if h := top + n*cell + bottom; h > size.Height {
			size.Height = h
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(img, "Correlation", size.Width/2-font.MeasureString(face, "Correlation").Ceil()/2, titleH-8, color.Black)

	annotate := font.MeasureString(face, "-0.00").Ceil()+4 <= cell
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r := image.Rect(left+j*cell, top+i*cell, left+(j+1)*cell, top+(i+1)*cell)
			v := m.Values[i][j]
			fill := undefinedColor
			if !math.IsNaN(v) {
				fill = blueAt((v + 1) / 2)
			}
			draw.Draw(img, r.Inset(1), image.NewUniform(fill), image.Point{}, draw.Src)
			if annotate && !math.IsNaN(v) {
				txt := fmt.Sprintf("%.2f", v)
				tw := font.MeasureString(face, txt).Ceil()
				drawText(img, txt, r.Min.X+(cell-tw)/2, r.Min.Y+cell/2+4, annotationColor)
			}
		}
	}
	for i, l := range labels {
		lw := font.MeasureString(face, l).Ceil()
		// row labels right-aligned to the grid
		drawText(img, l, left-pad-lw, top+i*cell+cell/2+4, color.Black)
		drawVerticalText(img, l, left+i*cell+cell/2-6, top+n*cell+pad, color.Black)
	}

	// colour bar
	bx := left + n*cell + 3*pad
	bh := n * cell
	for y := 0; y < bh; y++ {
		c := blueAt(1 - float64(y)/float64(bh-1))
		draw.Draw(img, image.Rect(bx, top+y, bx+barW, top+y+1), image.NewUniform(c), image.Point{}, draw.Src)
	}
	drawText(img, "1", bx+barW+4, top+10, color.Black)
	drawText(img, "-1", bx+barW+4, top+bh, color.Black)

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode heatmap: %w", err)
	}
	return nil
}

// minHeatmapCell keeps one row label per cell readable.
const minHeatmapCell = 14

func blueAt(t float64) color.RGBA {
	if t <= 0 || math.IsNaN(t) {
		return blues[0]
	}
	if t >= 1 {
		return blues[len(blues)-1]
	}
	pos := t * float64(len(blues)-1)
	i := int(pos)
	f := pos - float64(i)
	a, b := blues[i], blues[i+1]
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5) }
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xff}
}

func drawText(dst draw.Image, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawVerticalText writes s one character per line, top to bottom.
func drawVerticalText(dst draw.Image, s string, x, y int, c color.Color) {
	for i, r := range []rune(s) {
		drawText(dst, string(r), x, y+(i+1)*basicfont.Face7x13.Height, c)
	}
}
