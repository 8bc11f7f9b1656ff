// Package canvas is the signature capture surface: a raster that
// accumulates freehand pointer strokes.
//
// A gesture runs Idle → Drawing on pointer-down, appends one segment per
// pointer-move, and returns to Idle on pointer-up or pointer-leave. Clear
// zeroes the raster from any state. Emptiness is read from the pixels, not
// from gesture history.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// RasterSurface is the capability the submit flow needs from a drawing
// surface.
type RasterSurface interface {
	PointerDown(x, y float64)
	PointerMove(x, y float64)
	PointerUp()
	PointerLeave()
	Clear()
	IsEmpty() bool
	// Image returns the current raster. It is only valid until the next
	// pointer event or Clear.
	Image() image.Image
}

// State is the gesture state of a Surface.
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// Options configures the raster and the pen.
type Options struct {
	Width     int
	Height    int
	LineWidth float64
	Color     color.RGBA
}

// DefaultOptions is a 300x150 raster with a 2px round pen in #333333.
func DefaultOptions() Options {
	return Options{
		Width:     300,
		Height:    150,
		LineWidth: 2,
		Color:     color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}
	if o.Height <= 0 {
		o.Height = def.Height
	}
	if o.LineWidth <= 0 {
		o.LineWidth = def.LineWidth
	}
	if o.Color.A == 0 {
		o.Color = def.Color
	}
	return o
}

// Surface implements RasterSurface over an RGBA buffer.
type Surface struct {
	opts   Options
	buf    *image.RGBA
	pen    *image.Uniform
	raster *vector.Rasterizer

	state    State
	lastX    float32
	lastY    float32
	segments int
}

var _ RasterSurface = (*Surface)(nil)

// New allocates a cleared surface.
func New(opts Options) *Surface {
	opts = opts.normalized()
	return &Surface{
		opts:   opts,
		buf:    image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		pen:    image.NewUniform(opts.Color),
		raster: vector.NewRasterizer(opts.Width, opts.Height),
	}
}

// Options returns the surface configuration.
func (s *Surface) Options() Options {
	return s.opts
}

// Bounds returns the raster rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.buf.Bounds()
}

// State returns the current gesture state.
func (s *Surface) State() State {
	return s.state
}

// PointerDown starts a new path at (x, y). Nothing is painted until the
// pointer moves.
func (s *Surface) PointerDown(x, y float64) {
	s.state = Drawing
	s.lastX, s.lastY = s.clamp(x, y)
	s.segments = 0
}

// PointerMove appends a segment to the current path and paints it. Moves
// while Idle are ignored.
func (s *Surface) PointerMove(x, y float64) {
	if s.state != Drawing {
		return
	}
	nx, ny := s.clamp(x, y)
	if s.segments == 0 {
		s.paintDot(s.lastX, s.lastY)
	}
	s.paintSegment(s.lastX, s.lastY, nx, ny)
	s.paintDot(nx, ny)
	s.lastX, s.lastY = nx, ny
	s.segments++
}

// PointerUp closes the current path.
func (s *Surface) PointerUp() {
	s.state = Idle
	s.segments = 0
}

// PointerLeave closes the current path when the pointer exits the surface.
func (s *Surface) PointerLeave() {
	s.PointerUp()
}

// Clear erases the raster and returns to Idle.
func (s *Surface) Clear() {
	for i := range s.buf.Pix {
		s.buf.Pix[i] = 0
	}
	s.state = Idle
	s.segments = 0
}

// IsEmpty scans the whole buffer; it is true iff every channel of every
// pixel is zero.
func (s *Surface) IsEmpty() bool {
	for _, v := range s.buf.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the raster in the Idle state.
func (s *Surface) Clone() *Surface {
	c := New(s.opts)
	copy(c.buf.Pix, s.buf.Pix)
	return c
}

// Image returns the live raster buffer.
func (s *Surface) Image() image.Image {
	return s.buf
}

func (s *Surface) clamp(x, y float64) (float32, float32) {
	w, h := float64(s.opts.Width), float64(s.opts.Height)
	x = math.Max(0, math.Min(w, x))
	y = math.Max(0, math.Min(h, y))
	return float32(x), float32(y)
}

func (s *Surface) halfWidth() float32 {
	return float32(s.opts.LineWidth / 2)
}

// paintSegment fills the rectangle swept by the pen between two points.
// Round caps come from the dots painted at each end.
func (s *Surface) paintSegment(x0, y0, x1, y1 float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length < 1e-3 {
		return
	}
	hw := s.halfWidth()
	nx, ny := -dy/length*hw, dx/length*hw
	s.beginPath()
	s.moveTo(x0+nx, y0+ny)
	s.lineTo(x1+nx, y1+ny)
	s.lineTo(x1-nx, y1-ny)
	s.lineTo(x0-nx, y0-ny)
	s.fill()
}

// circleKappa places cubic control points so four curves approximate a
// circle.
const circleKappa = 0.5522847

func (s *Surface) paintDot(cx, cy float32) {
	r := s.halfWidth()
	k := r * circleKappa
	s.beginPath()
	s.moveTo(cx+r, cy)
	s.cubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r)
	s.cubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy)
	s.cubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r)
	s.cubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy)
	s.fill()
}

// Path points are clamped to the raster so the rasterizer never sees
// coordinates outside its accumulation buffer.

func (s *Surface) beginPath() {
	s.raster.Reset(s.opts.Width, s.opts.Height)
	s.raster.DrawOp = draw.Over
}

func (s *Surface) moveTo(x, y float32) {
	s.raster.MoveTo(s.clamp32(x, y))
}

func (s *Surface) lineTo(x, y float32) {
	s.raster.LineTo(s.clamp32(x, y))
}

func (s *Surface) cubeTo(bx, by, cx, cy, dx, dy float32) {
	bx, by = s.clamp32(bx, by)
	cx, cy = s.clamp32(cx, cy)
	dx, dy = s.clamp32(dx, dy)
	s.raster.CubeTo(bx, by, cx, cy, dx, dy)
}

func (s *Surface) fill() {
	s.raster.ClosePath()
	s.raster.Draw(s.buf, s.buf.Bounds(), s.pen, image.Point{})
}

func (s *Surface) clamp32(x, y float32) (float32, float32) {
	return s.clamp(float64(x), float64(y))
}
