package state

import "math"

// Kind is the discriminator written into a stored shape body.
type Kind string

const (
	KindRectangle Kind = "ract"
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindFreehand  Kind = "pen"
)

// Geometry is one of Rectangle, Circle, Line or Freehand.
type Geometry interface {
	Kind() Kind
	// Translate returns a copy moved by (dx, dy).
	Translate(dx, dy float64) Geometry
	sealed()
}

type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type Circle struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

type Line struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Freehand is a pen stroke through ordered points.
type Freehand struct {
	Points []Point
}

func (Rectangle) Kind() Kind { return KindRectangle }
func (Circle) Kind() Kind    { return KindCircle }
func (Line) Kind() Kind      { return KindLine }
func (Freehand) Kind() Kind  { return KindFreehand }

func (Rectangle) sealed() {}
func (Circle) sealed()    {}
func (Line) sealed()      {}
func (Freehand) sealed()  {}

func (r Rectangle) Translate(dx, dy float64) Geometry {
	r.X += dx
	r.Y += dy
	return r
}

func (c Circle) Translate(dx, dy float64) Geometry {
	c.CenterX += dx
	c.CenterY += dy
	c.Radius = math.Abs(c.Radius)
	return c
}

func (l Line) Translate(dx, dy float64) Geometry {
	l.X1 += dx
	l.Y1 += dy
	l.X2 += dx
	l.Y2 += dy
	return l
}

func (f Freehand) Translate(dx, dy float64) Geometry {
	points := make([]Point, len(f.Points))
	for i, p := range f.Points {
		points[i] = p.Add(dx, dy)
	}
	return Freehand{Points: points}
}

// Area returns the rectangle as a normalized box.
func (r Rectangle) Area() Area {
	return Area{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}.Normalize()
}

func (c Circle) Center() Point { return Point{X: c.CenterX, Y: c.CenterY} }

func (l Line) Start() Point { return Point{X: l.X1, Y: l.Y1} }
func (l Line) End() Point   { return Point{X: l.X2, Y: l.Y2} }

// Shape is a geometry plus its identity. ID is empty until the store has
// persisted the shape; Key is the local handle and is always set.
type Shape struct {
	ID       string
	Key      string
	AuthorID string
	Geometry Geometry
}

// Persisted reports whether the store has assigned an identity.
func (s Shape) Persisted() bool { return s.ID != "" }

// Translate returns a copy of s with its geometry moved by (dx, dy).
func (s Shape) Translate(dx, dy float64) Shape {
	s.Geometry = s.Geometry.Translate(dx, dy)
	return s
}

// NewRectangle builds the rectangle spanned from origin to p.
func NewRectangle(origin, p Point) Rectangle {
	w, h := p.Sub(origin)
	return Rectangle{X: origin.X, Y: origin.Y, Width: w, Height: h}
}

// NewCircle builds the circle dragged from origin to p. The center sits in the
// middle of the drag box and the radius is half the larger side.
func NewCircle(origin, p Point) Circle {
	w, h := p.Sub(origin)
	return Circle{
		CenterX: origin.X + w/2,
		CenterY: origin.Y + h/2,
		Radius:  math.Max(math.Abs(w), math.Abs(h)) / 2,
	}
}

func NewLine(origin, p Point) Line {
	return Line{X1: origin.X, Y1: origin.Y, X2: p.X, Y2: p.Y}
}

// NewFreehand copies points into a stroke.
func NewFreehand(points []Point) Freehand {
	return Freehand{Points: append([]Point(nil), points...)}
}

// Degenerate reports whether g has nothing to draw or hit: a zero-sized
// rectangle or circle, a zero-length line, or a stroke with fewer than 2 points.
func Degenerate(g Geometry) bool {
	switch g := g.(type) {
	case Rectangle:
		return g.Width == 0 || g.Height == 0
	case Circle:
		return g.Radius == 0
	case Line:
		return g.X1 == g.X2 && g.Y1 == g.Y2
	case Freehand:
		return len(g.Points) < 2
	}
	return true
}

// Bounds returns the box enclosing g.
func Bounds(g Geometry) Area {
	switch g := g.(type) {
	case Rectangle:
		return g.Area()
	case Circle:
		r := math.Abs(g.Radius)
		return Area{X: g.CenterX - r, Y: g.CenterY - r, Width: 2 * r, Height: 2 * r}
	case Line:
		return areaOf([]Point{g.Start(), g.End()})
	case Freehand:
		return areaOf(g.Points)
	}
	return Area{}
}
