package chart

import (
	"math"
	"strings"
)

const brailleBlank = '⠀'

// brailleDots maps a pixel offset inside a 2x4 cell to its braille dot bit.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type point struct {
	x, y float64
}

// BrailleSurface is a monochrome pixel grid rendered as Unicode braille, two
// pixels wide and four tall per terminal cell.
type BrailleSurface struct {
	width     int
	height    int
	pixels    []bool
	lineWidth float64
	paths     [][]point
}

func NewBrailleSurface(width, height int) *BrailleSurface {
	s := &BrailleSurface{lineWidth: 1}
	s.SetSize(width, height)
	return s
}

// NewBrailleSurfaceCells sizes the surface to fill cols x rows terminal cells.
func NewBrailleSurfaceCells(cols, rows int) *BrailleSurface {
	return NewBrailleSurface(cols*2, rows*4)
}

func (s *BrailleSurface) Width() int  { return s.width }
func (s *BrailleSurface) Height() int { return s.height }

func (s *BrailleSurface) SetSize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s.width = width
	s.height = height
	s.pixels = make([]bool, width*height)
	s.paths = nil
}

func (s *BrailleSurface) ClearRect(x, y, width, height float64) {
	x0 := clampInt(int(math.Floor(x)), 0, s.width)
	y0 := clampInt(int(math.Floor(y)), 0, s.height)
	x1 := clampInt(int(math.Ceil(x+width)), 0, s.width)
	y1 := clampInt(int(math.Ceil(y+height)), 0, s.height)
	for py := y0; py < y1; py++ {
		for px := x0; px < x1; px++ {
			s.pixels[py*s.width+px] = false
		}
	}
}

func (s *BrailleSurface) SetLineWidth(width float64) {
	if width < 1 {
		width = 1
	}
	s.lineWidth = width
}

func (s *BrailleSurface) BeginPath() {
	s.paths = nil
}

func (s *BrailleSurface) MoveTo(x, y float64) {
	s.paths = append(s.paths, []point{{x: x, y: y}})
}

func (s *BrailleSurface) LineTo(x, y float64) {
	if len(s.paths) == 0 {
		s.MoveTo(x, y)
		return
	}
	last := len(s.paths) - 1
	s.paths[last] = append(s.paths[last], point{x: x, y: y})
}

// Stroke rasterizes every sub-path with at least one segment. A segment
// whose ends coincide lights a single dot.
func (s *BrailleSurface) Stroke() {
	for _, path := range s.paths {
		for idx := 1; idx < len(path); idx++ {
			s.line(path[idx-1], path[idx])
		}
	}
}

// Pixel reports whether the pixel at x, y is lit.
func (s *BrailleSurface) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return false
	}
	return s.pixels[y*s.width+x]
}

func (s *BrailleSurface) Rows() []string {
	cols := (s.width + 1) / 2
	rows := (s.height + 3) / 4
	out := make([]string, rows)
	var builder strings.Builder
	for row := 0; row < rows; row++ {
		builder.Reset()
		for col := 0; col < cols; col++ {
			cell := brailleBlank
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if s.Pixel(col*2+dx, row*4+dy) {
						cell |= brailleDots[dy][dx]
					}
				}
			}
			builder.WriteRune(cell)
		}
		out[row] = builder.String()
	}
	return out
}

func (s *BrailleSurface) String() string {
	return strings.Join(s.Rows(), "\n")
}

func (s *BrailleSurface) line(from, to point) {
	x0, y0 := s.pixelCoord(from)
	x1, y1 := s.pixelCoord(to)
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errTerm := dx + dy
	for {
		s.plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * errTerm
		if e2 >= dy {
			errTerm += dy
			x0 += sx
		}
		if e2 <= dx {
			errTerm += dx
			y0 += sy
		}
	}
}

// plot lights a dot and thickens it downward to the stroke width.
func (s *BrailleSurface) plot(x, y int) {
	thickness := int(math.Round(s.lineWidth))
	if thickness < 1 {
		thickness = 1
	}
	top := y - (thickness-1)/2
	for py := top; py < top+thickness; py++ {
		if x < 0 || x >= s.width || py < 0 || py >= s.height {
			continue
		}
		s.pixels[py*s.width+x] = true
	}
}

func (s *BrailleSurface) pixelCoord(p point) (int, int) {
	x := clampInt(int(math.Round(p.x)), 0, s.width-1)
	y := clampInt(int(math.Round(p.y)), 0, s.height-1)
	return x, y
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
