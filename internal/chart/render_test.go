package chart

import (
	"fmt"
	"image/color"
	"strings"
	"testing"
)

type recordingSurface struct {
	width, height int
	ops           []string
}

func (r *recordingSurface) Width() int  { return r.width }
func (r *recordingSurface) Height() int { return r.height }
func (r *recordingSurface) SetSize(w, h int) {
	r.width, r.height = w, h
	r.ops = append(r.ops, fmt.Sprintf("size %d %d", w, h))
}
func (r *recordingSurface) ClearRect(x, y, w, h float64) {
	r.ops = append(r.ops, fmt.Sprintf("clear %g %g %g %g", x, y, w, h))
}
func (r *recordingSurface) SetLineWidth(w float64) { r.ops = append(r.ops, fmt.Sprintf("width %g", w)) }
func (r *recordingSurface) BeginPath()             { r.ops = append(r.ops, "begin") }
func (r *recordingSurface) MoveTo(x, y float64)    { r.ops = append(r.ops, fmt.Sprintf("move %g %g", x, y)) }
func (r *recordingSurface) LineTo(x, y float64)    { r.ops = append(r.ops, fmt.Sprintf("line %g %g", x, y)) }
func (r *recordingSurface) Stroke()                { r.ops = append(r.ops, "stroke") }

func TestRenderRisingLineBetweenInsets(t *testing.T) {
	t.Parallel()

	surface := &recordingSurface{width: 240, height: 60}
	Render(surface, []float64{-90, -30})

	want := []string{
		"clear 0 0 240 60",
		"width 2",
		"begin",
		"move 2 58",
		"line 238 2",
		"stroke",
	}
	if strings.Join(surface.ops, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected ops:\n got %v\nwant %v", surface.ops, want)
	}
}

func TestRenderDefaultsSizeWhenUnset(t *testing.T) {
	t.Parallel()

	surface := &recordingSurface{}
	Render(surface, nil)
	if surface.width != DefaultWidth || surface.height != DefaultHeight {
		t.Fatalf("expected default size, got %dx%d", surface.width, surface.height)
	}
	if got := strings.Join(surface.ops, "|"); got != "size 240 60|clear 0 0 240 60" {
		t.Fatalf("empty buffer should only clear, got %v", surface.ops)
	}
}

func TestRenderSingleSampleIsDegenerateSegment(t *testing.T) {
	t.Parallel()

	surface := &recordingSurface{width: 240, height: 60}
	Render(surface, []float64{-60})
	want := "clear 0 0 240 60|width 2|begin|move 2 30|line 2 30|stroke"
	if got := strings.Join(surface.ops, "|"); got != want {
		t.Fatalf("unexpected ops: %s", got)
	}
}

func TestRenderNilSurfaceIsSkipped(t *testing.T) {
	t.Parallel()

	Render(nil, []float64{-50})
}

func TestRenderClampsWithoutMutatingSamples(t *testing.T) {
	t.Parallel()

	samples := []float64{-100, -10}
	clamped := NewBrailleSurface(240, 60)
	Render(clamped, samples)
	bounded := NewBrailleSurface(240, 60)
	Render(bounded, []float64{-90, -30})

	if clamped.String() != bounded.String() {
		t.Fatalf("out-of-range samples should render like the domain bounds")
	}
	if samples[0] != -100 || samples[1] != -10 {
		t.Fatalf("Render mutated samples: %v", samples)
	}
}

func TestBrailleRenderIsIdempotent(t *testing.T) {
	t.Parallel()

	surface := NewBrailleSurfaceCells(30, 3)
	history := []float64{-70, -65, -50, -82, -40}
	Render(surface, history)
	first := surface.String()
	Render(surface, history)
	if surface.String() != first {
		t.Fatalf("second render changed the surface")
	}

	Render(surface, nil)
	for _, row := range surface.Rows() {
		if strings.Trim(row, string(brailleBlank)) != "" {
			t.Fatalf("empty history should leave the surface blank, got %q", row)
		}
	}
}

func TestBrailleRisingLineIsMonotonic(t *testing.T) {
	t.Parallel()

	surface := NewBrailleSurface(240, 60)
	Render(surface, []float64{-90, -30})

	if !surface.Pixel(2, 58) || !surface.Pixel(238, 2) {
		t.Fatalf("expected inset end points to be lit")
	}
	if surface.Pixel(0, 59) || surface.Pixel(239, 0) {
		t.Fatalf("corners outside the inset should stay dark")
	}
	prevTop := 60
	for x := 2; x <= 238; x++ {
		top := -1
		for y := 0; y < 60; y++ {
			if surface.Pixel(x, y) {
				top = y
				break
			}
		}
		if top < 0 {
			t.Fatalf("column %d has no lit pixel", x)
		}
		if top > prevTop {
			t.Fatalf("line falls at column %d: %d > %d", x, top, prevTop)
		}
		prevTop = top
	}
}

func TestBrailleSingleSampleLightsDot(t *testing.T) {
	t.Parallel()

	surface := NewBrailleSurface(40, 16)
	Render(surface, []float64{-30})
	if !surface.Pixel(2, 2) {
		t.Fatalf("expected single sample dot at the top-left inset")
	}
}

func TestRasterSurfaceDrawsAndClears(t *testing.T) {
	t.Parallel()

	surface := NewRasterSurface(240, 60)
	Render(surface, []float64{-90, -30})

	img := surface.Image()
	lit := false
	for y := 28; y <= 32 && !lit; y++ {
		for x := 118; x <= 122; x++ {
			if img.RGBAAt(x, y).A > 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Fatalf("expected stroke pixels near the chart midpoint")
	}

	Render(surface, nil)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.RGBAAt(x, y).A != 0 {
				t.Fatalf("pixel %d,%d not cleared", x, y)
			}
		}
	}

	var buf strings.Builder
	if err := surface.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG returned error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\x89PNG") {
		t.Fatalf("expected PNG signature")
	}
}

func TestRasterSingleSampleFillsDot(t *testing.T) {
	t.Parallel()

	surface := NewRasterSurface(240, 60)
	surface.SetStrokeColor(color.RGBA{R: 255, A: 255})
	Render(surface, []float64{-60})

	img := surface.Image()
	lit := 0
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.RGBAAt(x, y)
			if px.A == 0 {
				continue
			}
			if x > 6 || y < 26 || y > 34 {
				t.Fatalf("pixel %d,%d lit away from the sample at 2,30", x, y)
			}
			if px.G != 0 || px.B != 0 {
				t.Fatalf("pixel %d,%d has color %v, want the stroke color", x, y, px)
			}
			lit++
		}
	}
	if lit == 0 {
		t.Fatalf("expected the single sample to be drawn as a dot")
	}
}
