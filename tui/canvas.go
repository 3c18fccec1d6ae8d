// ABOUTME: Character canvas that rasterizes scene primitives into terminal cells with per-cell colors.
// ABOUTME: One cell covers CellWidth x CellHeight surface pixels; lines use Bresenham stepping.
package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Surface pixels covered by one terminal cell. Cells are about twice as tall
// as they are wide.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

type cell struct {
	r     rune
	color string
	bold  bool
}

// canvas is a fixed grid of colored runes.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// toCell maps a surface pixel position to its cell.
func toCell(x, y float64) (int, int) {
	return int(math.Floor(x / CellWidth)), int(math.Floor(y / CellHeight))
}

func (c *canvas) set(x, y int, r rune, color string, bold bool) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cell{r: r, color: color, bold: bold}
}

func (c *canvas) at(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// line draws from (x0, y0) to (x1, y1). Dashed lines leave every other pair
// of cells blank.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, color string, dashed bool) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for step := 0; ; step++ {
		if !dashed || (step/2)%2 == 0 {
			c.set(x0, y0, r, color, false)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// text writes s left to right starting at (x, y), clipped to the canvas.
func (c *canvas) text(x, y int, s string, color string) {
	for _, r := range s {
		c.set(x, y, r, color, false)
		x++
	}
}

// String renders the grid with lipgloss colors, one styled run per color.
func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		row := c.cells[y*c.w : (y+1)*c.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].color == row[i].color && row[j].bold == row[i].bold {
				run.WriteRune(row[j].r)
				j++
			}
			if row[i].color == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(row[i].color)).Bold(row[i].bold).Render(run.String()))
			}
			i = j
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// plain renders the grid without colors.
func (c *canvas) plain() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		for _, cl := range c.cells[y*c.w : (y+1)*c.w] {
			b.WriteRune(cl.r)
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// arrowRune points along the dominant direction from (x0, y0) to (x1, y1).
func arrowRune(x0, y0, x1, y1 float64) rune {
	dx, dy := x1-x0, y1-y0
	// Cells are twice as tall as wide, so compare in cell units.
	if math.Abs(dx/CellWidth) >= math.Abs(dy/CellHeight) {
		if dx >= 0 {
			return '▶'
		}
		return '◀'
	}
	if dy >= 0 {
		return '▼'
	}
	return '▲'
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
