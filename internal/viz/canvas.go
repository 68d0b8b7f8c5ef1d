package viz

import (
	"bytes"
	"fmt"
	"math"

	"github.com/golang/freetype/truetype"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/autolysis/internal/utils"
)

var (
	colorWhite   = drawing.ColorWhite
	colorInk     = drawing.ColorFromHex("333333")
	colorGrid    = drawing.ColorFromHex("dddddd")
	colorBar     = drawing.ColorFromHex("4c72b0")
	colorBarEdge = drawing.ColorFromHex("2f4f7f")
	colorDensity = drawing.ColorFromHex("dd8452")
	// palette colours cluster labels and boxes
	palette = []drawing.Color{
		drawing.ColorFromHex("4c72b0"), drawing.ColorFromHex("dd8452"), drawing.ColorFromHex("55a868"),
		drawing.ColorFromHex("c44e52"), drawing.ColorFromHex("8172b3"), drawing.ColorFromHex("937860"),
		drawing.ColorFromHex("da8bc3"), drawing.ColorFromHex("8c8c8c"),
	}
)

func paletteColor(i int) drawing.Color { return palette[i%len(palette)] }

// canvas is a thin drawing surface over a go-chart PNG renderer, used for
// charts that chart.Chart has no series type for.
type canvas struct {
	r    chart.Renderer
	font *truetype.Font
	w, h int
}

func newCanvas(w, h int) (*canvas, error) {
	r, err := chart.PNG(w, h)
	if err != nil {
		return nil, fmt.Errorf("png renderer: %w", err)
	}
	f, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	r.SetDPI(chart.DefaultDPI)
	c := &canvas{r: r, font: f, w: w, h: h}
	c.fillRect(0, 0, w, h, colorWhite)
	return c, nil
}

func (c *canvas) fillRect(x0, y0, x1, y1 int, col drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(col)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.Fill()
}

func (c *canvas) strokeRect(x0, y0, x1, y1 int, col drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(col)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.Stroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, col drawing.Color, width float64) {
	c.r.ResetStyle()
	c.r.SetStrokeColor(col)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) dot(x, y int, radius float64, col drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFillColor(col)
	c.r.SetStrokeColor(col)
	c.r.Circle(radius, x, y)
	c.r.Fill()
}

func (c *canvas) setText(size float64, col drawing.Color) {
	c.r.ResetStyle()
	c.r.SetFont(c.font)
	c.r.SetFontSize(size)
	c.r.SetFontColor(col)
}

// text draws s with its left edge at x and its vertical centre at cy.
func (c *canvas) text(s string, x, cy int, size float64, col drawing.Color) {
	c.setText(size, col)
	b := c.r.MeasureText(s)
	c.r.Text(s, x, cy+b.Height()/2)
}

// textCentered draws s centred on (cx, cy).
func (c *canvas) textCentered(s string, cx, cy int, size float64, col drawing.Color) {
	c.setText(size, col)
	b := c.r.MeasureText(s)
	c.r.Text(s, cx-b.Width()/2, cy+b.Height()/2)
}

// textRight draws s with its right edge at rx.
func (c *canvas) textRight(s string, rx, cy int, size float64, col drawing.Color) {
	c.setText(size, col)
	b := c.r.MeasureText(s)
	c.r.Text(s, rx-b.Width(), cy+b.Height()/2)
}

func (c *canvas) title(s string) {
	c.textCentered(s, c.w/2, 22, 14, colorInk)
}

func (c *canvas) save(path string) error {
	var buf bytes.Buffer
	if err := c.r.Save(&buf); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// scale maps v from [lo, hi] onto the pixel span [p0, p1].
func scale(v, lo, hi float64, p0, p1 int) int {
	if hi == lo {
		return (p0 + p1) / 2
	}
	return p0 + int(math.Round((v-lo)/(hi-lo)*float64(p1-p0)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatTick(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.Abs(v) >= 1e5 || (v != 0 && math.Abs(v) < 1e-3):
		return fmt.Sprintf("%.2e", v)
	default:
		return fmt.Sprintf("%.4g", v)
	}
}
