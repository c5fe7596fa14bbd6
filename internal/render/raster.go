package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"RoomBoard/internal/state"
)

const dashLength = 6

// Raster is a Surface backed by an RGBA image.
type Raster struct {
	img   *image.RGBA
	thick int
}

var _ Surface = (*Raster)(nil)

// NewRaster returns a w×h surface stroking lines thick pixels wide.
func NewRaster(w, h, thick int) *Raster {
	if thick < 1 {
		thick = 1
	}
	return &Raster{img: image.NewRGBA(image.Rect(0, 0, w, h)), thick: thick}
}

// Image is the backing image. It is reused across frames.
func (r *Raster) Image() *image.RGBA { return r.img }

// Resize swaps the backing image when the size changes.
func (r *Raster) Resize(w, h int) {
	if r.img.Bounds().Dx() == w && r.img.Bounds().Dy() == h {
		return
	}
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
}

func (r *Raster) Clear(bg color.Color) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

func (r *Raster) StrokeLine(a, b state.Point, col color.Color) {
	drawLine(r.img, a, b, col, r.thick)
}

func (r *Raster) StrokeRect(area state.Area, col color.Color) {
	for _, edge := range edges(area) {
		drawLine(r.img, edge[0], edge[1], col, r.thick)
	}
}

func (r *Raster) StrokeCircle(center state.Point, radius float64, col color.Color) {
	start := -r.thick / 2
	for i := 0; i < r.thick; i++ {
		if rr := radius + float64(start+i); rr >= 0 {
			drawRing(r.img, center, rr, col)
		}
	}
}

func (r *Raster) StrokeDashedRect(area state.Area, col color.Color) {
	for _, edge := range edges(area) {
		drawDashedLine(r.img, edge[0], edge[1], col)
	}
}

func edges(area state.Area) [4][2]state.Point {
	x0, y0 := area.X, area.Y
	x1, y1 := area.X+area.Width, area.Y+area.Height
	return [4][2]state.Point{
		{state.Pt(x0, y0), state.Pt(x1, y0)},
		{state.Pt(x1, y0), state.Pt(x1, y1)},
		{state.Pt(x1, y1), state.Pt(x0, y1)},
		{state.Pt(x0, y1), state.Pt(x0, y0)},
	}
}

func round(v float64) int { return int(math.Round(v)) }

// clipBox is an inclusive pixel rectangle in float coordinates.
type clipBox struct{ minX, minY, maxX, maxY float64 }

// boxOf returns the pixel rectangle of img grown by pad on every side.
func boxOf(img *image.RGBA, pad int) clipBox {
	b := img.Bounds()
	return clipBox{
		minX: float64(b.Min.X - pad),
		minY: float64(b.Min.Y - pad),
		maxX: float64(b.Max.X - 1 + pad),
		maxY: float64(b.Max.Y - 1 + pad),
	}
}

const (
	outLeft = 1 << iota
	outRight
	outAbove
	outBelow
)

func (c clipBox) outcode(p state.Point) int {
	code := 0
	switch {
	case p.X < c.minX:
		code |= outLeft
	case p.X > c.maxX:
		code |= outRight
	}
	switch {
	case p.Y < c.minY:
		code |= outAbove
	case p.Y > c.maxY:
		code |= outBelow
	}
	return code
}

// clip trims segment ab to the box (Cohen-Sutherland). ok is false when
// nothing of the segment lies inside.
func (c clipBox) clip(a, b state.Point) (state.Point, state.Point, bool) {
	if !finite(a) || !finite(b) {
		return a, b, false
	}
	ca, cb := c.outcode(a), c.outcode(b)
	for {
		if ca|cb == 0 {
			return a, b, true
		}
		if ca&cb != 0 {
			return a, b, false
		}
		out := ca
		if out == 0 {
			out = cb
		}
		var p state.Point
		switch {
		case out&outAbove != 0:
			p = state.Pt(a.X+(b.X-a.X)*(c.minY-a.Y)/(b.Y-a.Y), c.minY)
		case out&outBelow != 0:
			p = state.Pt(a.X+(b.X-a.X)*(c.maxY-a.Y)/(b.Y-a.Y), c.maxY)
		case out&outLeft != 0:
			p = state.Pt(c.minX, a.Y+(b.Y-a.Y)*(c.minX-a.X)/(b.X-a.X))
		default:
			p = state.Pt(c.maxX, a.Y+(b.Y-a.Y)*(c.maxX-a.X)/(b.X-a.X))
		}
		if out == ca {
			a, ca = p, c.outcode(p)
		} else {
			b, cb = p, c.outcode(p)
		}
	}
}

func finite(p state.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func setThickPixel(img *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if p := image.Pt(x+dx, y+dy); p.In(img.Bounds()) {
				img.Set(p.X, p.Y, col)
			}
		}
	}
}

// drawLine clips ab to the image, grown by the pen radius, then steps
// Bresenham's algorithm with a square pen. Work is bounded by the image size.
func drawLine(img *image.RGBA, a, b state.Point, col color.Color, thick int) {
	a, b, ok := boxOf(img, thick/2).clip(a, b)
	if !ok {
		return
	}
	x0, y0, x1, y1 := round(a.X), round(a.Y), round(b.X), round(b.Y)
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// drawRing plots a one pixel circle by solving for the curve on every image
// row and column it spans, so no pixel outside the image is ever visited.
func drawRing(img *image.RGBA, c state.Point, r float64, col color.Color) {
	if !finite(c) || math.IsNaN(r) || math.IsInf(r, 0) {
		return
	}
	b := img.Bounds()
	rr := r * r
	if y0, y1, ok := span(c.Y-r, c.Y+r, b.Min.Y, b.Max.Y); ok {
		for y := y0; y <= y1; y++ {
			d := float64(y) - c.Y
			dx := math.Sqrt(math.Max(0, rr-d*d))
			plot(img, c.X-dx, float64(y), col)
			plot(img, c.X+dx, float64(y), col)
		}
	}
	if x0, x1, ok := span(c.X-r, c.X+r, b.Min.X, b.Max.X); ok {
		for x := x0; x <= x1; x++ {
			d := float64(x) - c.X
			dy := math.Sqrt(math.Max(0, rr-d*d))
			plot(img, float64(x), c.Y-dy, col)
			plot(img, float64(x), c.Y+dy, col)
		}
	}
}

// span intersects [lo, hi] with the pixel range [first, end).
func span(lo, hi float64, first, end int) (int, int, bool) {
	lo = math.Max(math.Ceil(lo), float64(first))
	hi = math.Min(math.Floor(hi), float64(end-1))
	if lo > hi {
		return 0, 0, false
	}
	return int(lo), int(hi), true
}

func plot(img *image.RGBA, x, y float64, col color.Color) {
	x, y = math.Round(x), math.Round(y)
	b := img.Bounds()
	if x < float64(b.Min.X) || x >= float64(b.Max.X) || y < float64(b.Min.Y) || y >= float64(b.Max.Y) {
		return
	}
	img.Set(int(x), int(y), col)
}

// drawDashedLine paints alternating runs of dashLength pixels along ab. The
// dash phase is measured from a so clipping does not shift the pattern.
func drawDashedLine(img *image.RGBA, a, b state.Point, col color.Color) {
	ca, cb, ok := boxOf(img, 0).clip(a, b)
	if !ok {
		return
	}
	phase := round(math.Max(math.Abs(ca.X-a.X), math.Abs(ca.Y-a.Y)))
	x0, y0, x1, y1 := round(ca.X), round(ca.Y), round(cb.X), round(cb.Y)
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		plot(img, ca.X, ca.Y, col)
		return
	}
	for i := 0; i <= steps; i++ {
		if ((i+phase)/dashLength)%2 == 1 {
			continue
		}
		plot(img, float64(x0+(x1-x0)*i/steps), float64(y0+(y1-y0)*i/steps), col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
