package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultStrokeColor is the line color used for exported charts.
var DefaultStrokeColor = drawing.ColorFromHex("2b6cb0")

// RasterSurface draws into an RGBA image through go-chart's raster graphic
// context. It backs PNG chart exports.
type RasterSurface struct {
	img    *image.RGBA
	gc     *drawing.RasterGraphicContext
	stroke color.Color
	width  float64

	// start and moved track whether the current path has any extent.
	start    [2]float64
	hasStart bool
	moved    bool
}

func NewRasterSurface(width, height int) *RasterSurface {
	s := &RasterSurface{stroke: DefaultStrokeColor, width: 1}
	s.SetSize(width, height)
	return s
}

func (s *RasterSurface) Width() int {
	if s.img == nil {
		return 0
	}
	return s.img.Bounds().Dx()
}

func (s *RasterSurface) Height() int {
	if s.img == nil {
		return 0
	}
	return s.img.Bounds().Dy()
}

func (s *RasterSurface) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		s.img = nil
		s.gc = nil
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	gc, err := drawing.NewRasterGraphicContext(s.img)
	if err != nil {
		s.gc = nil
		return
	}
	s.gc = gc
}

func (s *RasterSurface) SetStrokeColor(c color.Color) {
	s.stroke = c
}

// ClearRect resets the rectangle to fully transparent pixels.
func (s *RasterSurface) ClearRect(x, y, width, height float64) {
	if s.img == nil {
		return
	}
	rect := image.Rect(int(x), int(y), int(x+width+0.5), int(y+height+0.5))
	draw.Draw(s.img, rect, image.Transparent, image.Point{}, draw.Src)
}

func (s *RasterSurface) SetLineWidth(width float64) {
	s.width = width
	if s.gc != nil {
		s.gc.SetLineWidth(width)
	}
}

func (s *RasterSurface) BeginPath() {
	s.hasStart, s.moved = false, false
	if s.gc != nil {
		s.gc.BeginPath()
	}
}

func (s *RasterSurface) MoveTo(x, y float64) {
	if !s.hasStart {
		s.start, s.hasStart = [2]float64{x, y}, true
	}
	if s.gc != nil {
		s.gc.MoveTo(x, y)
	}
}

func (s *RasterSurface) LineTo(x, y float64) {
	if s.hasStart && (x != s.start[0] || y != s.start[1]) {
		s.moved = true
	}
	if s.gc != nil {
		s.gc.LineTo(x, y)
	}
}

func (s *RasterSurface) Stroke() {
	if s.gc == nil {
		return
	}
	if s.hasStart && !s.moved {
		s.dot(s.start[0], s.start[1])
		return
	}
	s.gc.SetStrokeColor(s.stroke)
	s.gc.Stroke()
}

// dot fills a disc of the line width at (x, y). The stroker emits nothing for
// a zero-length path.
func (s *RasterSurface) dot(x, y float64) {
	radius := math.Max(s.width, 1)
	s.gc.BeginPath()
	s.gc.ArcTo(x, y, radius, radius, 0, 2*math.Pi)
	s.gc.Close()
	s.gc.SetFillColor(s.stroke)
	s.gc.Fill()
}

func (s *RasterSurface) Image() *image.RGBA {
	return s.img
}

func (s *RasterSurface) EncodePNG(w io.Writer) error {
	if s.img == nil {
		return fmt.Errorf("encode chart png: surface has no pixels")
	}
	if err := png.Encode(w, s.img); err != nil {
		return fmt.Errorf("encode chart png: %w", err)
	}
	return nil
}
