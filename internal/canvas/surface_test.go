package canvas

import (
	"image/color"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSurfaceIsEmpty(t *testing.T) {
	s := New(DefaultOptions())
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 300, s.Bounds().Dx())
	assert.Equal(t, 150, s.Bounds().Dy())
}

func TestStrokeMarksPixels(t *testing.T) {
	s := New(DefaultOptions())
	s.PointerDown(10, 10)
	require.Equal(t, Drawing, s.State())
	s.PointerMove(50, 10)
	assert.False(t, s.IsEmpty())

	got := s.buf.RGBAAt(30, 10)
	assert.Equal(t, color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}, got)
	assert.Equal(t, color.RGBA{}, s.buf.RGBAAt(30, 40))
}

func TestClearAfterDrawingIsEmptyAgain(t *testing.T) {
	s := New(DefaultOptions())
	s.PointerDown(5, 5)
	s.PointerMove(100, 100)
	require.False(t, s.IsEmpty())

	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, Idle, s.State())

	s.PointerMove(120, 120)
	assert.True(t, s.IsEmpty(), "moves after clear must not draw without a new pointer-down")
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(DefaultOptions())
	s.PointerDown(5, 5)
	s.PointerMove(100, 100)

	c := s.Clone()
	assert.Equal(t, s.buf.Pix, c.buf.Pix)
	assert.Equal(t, Idle, c.State())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.False(t, s.IsEmpty(), "clearing the copy must not touch the original")
	assert.Equal(t, Drawing, s.State())
}

func TestGestureEndsOnUpAndLeave(t *testing.T) {
	for name, end := range map[string]func(*Surface){
		"up":    (*Surface).PointerUp,
		"leave": (*Surface).PointerLeave,
	} {
		t.Run(name, func(t *testing.T) {
			s := New(DefaultOptions())
			s.PointerDown(10, 10)
			s.PointerMove(20, 10)
			end(s)
			assert.Equal(t, Idle, s.State())

			before := append([]byte(nil), s.buf.Pix...)
			s.PointerMove(200, 100)
			assert.Equal(t, before, s.buf.Pix)
		})
	}
}

func TestTapWithoutMovePaintsNothing(t *testing.T) {
	s := New(DefaultOptions())
	s.PointerDown(40, 40)
	s.PointerUp()
	assert.True(t, s.IsEmpty())
}

func TestSinglePixelCountsAsInk(t *testing.T) {
	s := New(Options{Width: 4, Height: 4})
	s.buf.Pix[len(s.buf.Pix)-1] = 1
	assert.False(t, s.IsEmpty())
}

func TestPointsOutsideRasterAreClamped(t *testing.T) {
	s := New(Options{Width: 20, Height: 20, LineWidth: 2})
	s.PointerDown(-50, 10)
	s.PointerMove(500, 10)
	assert.False(t, s.IsEmpty())
	assert.NotZero(t, s.buf.RGBAAt(0, 10).A)
	assert.NotZero(t, s.buf.RGBAAt(19, 10).A)
}

func TestCellToRasterUsesCellCentre(t *testing.T) {
	s := New(Options{Width: 100, Height: 40})
	x, y := s.CellToRaster(0, 0, 10, 4)
	assert.InDelta(t, 5.0, x, 1e-9)
	assert.InDelta(t, 5.0, y, 1e-9)
	x, y = s.CellToRaster(9, 3, 10, 4)
	assert.InDelta(t, 95.0, x, 1e-9)
	assert.InDelta(t, 35.0, y, 1e-9)
}

func TestBrailleOfBlankSurface(t *testing.T) {
	s := New(DefaultOptions())
	lines := s.Braille(6, 2)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, strings.Repeat("⠀", 6), line)
	}
	assert.Nil(t, s.Braille(0, 2))
}

func TestBrailleHorizontalStroke(t *testing.T) {
	s := New(Options{Width: 20, Height: 16, LineWidth: 4})
	s.PointerDown(2, 8)
	s.PointerMove(18, 8)
	s.PointerUp()

	g := goldie.New(t)
	g.Assert(t, "horizontal_stroke", []byte(strings.Join(s.Braille(10, 4), "\n")+"\n"))
}
