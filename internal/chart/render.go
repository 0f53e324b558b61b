// Package chart draws a bounded series of signal samples as a strip chart on
// a fixed-size drawing surface.
package chart

// Surface is a 2D drawing target with a canvas-style path API. Coordinates
// are in surface pixels with the origin at the top-left corner.
type Surface interface {
	Width() int
	Height() int
	SetSize(width, height int)
	ClearRect(x, y, width, height float64)
	SetLineWidth(width float64)
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
}

const (
	DefaultWidth  = 240
	DefaultHeight = 60

	// MinDBm and MaxDBm bound the vertical axis; samples outside are clamped
	// when drawn.
	MinDBm = -90.0
	MaxDBm = -30.0

	Inset       = 2.0
	StrokeWidth = 2.0
)

// Render clears the surface and draws samples as one polyline, oldest on
// the left. A nil surface is skipped. Render never modifies samples.
func Render(surface Surface, samples []float64) {
	if surface == nil {
		return
	}
	width, height := resolveSize(surface)
	if surface.Width() != width || surface.Height() != height {
		surface.SetSize(width, height)
	}
	surface.ClearRect(0, 0, float64(width), float64(height))
	if len(samples) == 0 {
		return
	}

	surface.SetLineWidth(StrokeWidth)
	surface.BeginPath()
	var x, y float64
	for idx, value := range samples {
		x, y = Project(idx, len(samples), value, width, height)
		if idx == 0 {
			surface.MoveTo(x, y)
			continue
		}
		surface.LineTo(x, y)
	}
	if len(samples) == 1 {
		surface.LineTo(x, y)
	}
	surface.Stroke()
}

// Project maps the sample at index out of count samples to surface
// coordinates.
func Project(index, count int, value float64, width, height int) (float64, float64) {
	span := count - 1
	if span < 1 {
		span = 1
	}
	w := float64(width)
	h := float64(height)
	x := (float64(index)/float64(span))*(w-2*Inset) + Inset
	ratio := (clamp(value, MinDBm, MaxDBm) - MinDBm) / (MaxDBm - MinDBm)
	y := h - Inset - ratio*(h-2*Inset)
	return x, y
}

func resolveSize(surface Surface) (int, int) {
	width := surface.Width()
	if width <= 0 {
		width = DefaultWidth
	}
	height := surface.Height()
	if height <= 0 {
		height = DefaultHeight
	}
	return width, height
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
