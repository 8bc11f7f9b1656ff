package canvas

import "strings"

// Each terminal cell shows a 2x4 block of braille dots.
const (
	dotsPerCellX = 2
	dotsPerCellY = 4
	brailleBase  = 0x2800
)

// brailleBits maps a dot position within a cell to its code point bit.
var brailleBits = [dotsPerCellY][dotsPerCellX]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Dots downsamples the raster to a (rows*4) x (cols*2) grid. A dot is lit
// when any pixel in its block has non-zero alpha.
func (s *Surface) Dots(cols, rows int) [][]bool {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	gw, gh := cols*dotsPerCellX, rows*dotsPerCellY
	w, h := s.opts.Width, s.opts.Height
	grid := make([][]bool, gh)
	for gy := range grid {
		grid[gy] = make([]bool, gw)
		y0, y1 := span(gy, gh, h)
		for gx := 0; gx < gw; gx++ {
			x0, x1 := span(gx, gw, w)
			grid[gy][gx] = s.anyInk(x0, y0, x1, y1)
		}
	}
	return grid
}

// Braille renders the raster as rows lines of cols braille characters.
func (s *Surface) Braille(cols, rows int) []string {
	grid := s.Dots(cols, rows)
	if grid == nil {
		return nil
	}
	lines := make([]string, rows)
	var b strings.Builder
	for row := 0; row < rows; row++ {
		b.Reset()
		for col := 0; col < cols; col++ {
			var bits rune
			for dy := 0; dy < dotsPerCellY; dy++ {
				for dx := 0; dx < dotsPerCellX; dx++ {
					if grid[row*dotsPerCellY+dy][col*dotsPerCellX+dx] {
						bits |= brailleBits[dy][dx]
					}
				}
			}
			b.WriteRune(brailleBase + bits)
		}
		lines[row] = b.String()
	}
	return lines
}

// CellToRaster maps the centre of terminal cell (col, row) in a cols x rows
// pad onto raster coordinates.
func (s *Surface) CellToRaster(col, row, cols, rows int) (float64, float64) {
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	x := (float64(col) + 0.5) * float64(s.opts.Width) / float64(cols)
	y := (float64(row) + 0.5) * float64(s.opts.Height) / float64(rows)
	return x, y
}

// span returns the pixel range [lo, hi) covered by cell i of n over size
// pixels. Every cell covers at least one pixel.
func span(i, n, size int) (int, int) {
	lo := i * size / n
	hi := (i + 1) * size / n
	if hi <= lo {
		hi = lo + 1
	}
	if hi > size {
		hi = size
	}
	if lo >= size {
		lo = size - 1
	}
	return lo, hi
}

func (s *Surface) anyInk(x0, y0, x1, y1 int) bool {
	for y := y0; y < y1; y++ {
		row := s.buf.Pix[y*s.buf.Stride : (y+1)*s.buf.Stride]
		for x := x0; x < x1; x++ {
			if row[x*4+3] != 0 {
				return true
			}
		}
	}
	return false
}
