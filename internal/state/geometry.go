package state

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func fromVec(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Sub returns the delta from q to p.
func (p Point) Sub(q Point) (dx, dy float64) { return p.X - q.X, p.Y - q.Y }

// Distance is the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.vec(), b.vec()))
}

// SegmentDistance returns the distance from p to the segment ab. Projections that
// fall outside the segment short-circuit to the nearer endpoint, and a segment
// shorter than threshold is treated as its midpoint.
func SegmentDistance(p, a, b Point, threshold float64) float64 {
	ab := r2.Sub(b.vec(), a.vec())
	length := r2.Norm(ab)
	if length < threshold {
		mid := r2.Add(a.vec(), r2.Scale(0.5, ab))
		return Distance(p, fromVec(mid))
	}
	t := r2.Dot(r2.Sub(p.vec(), a.vec()), ab) / (length * length)
	switch {
	case t <= 0:
		return Distance(p, a)
	case t >= 1:
		return Distance(p, b)
	}
	proj := r2.Add(a.vec(), r2.Scale(t, ab))
	return Distance(p, fromVec(proj))
}

// Area is an axis-aligned box. Width and Height are never negative once
// produced by Normalize or Bounds.
type Area struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Normalize flips negative extents so the box is anchored at its top-left corner.
func (a Area) Normalize() Area {
	if a.Width < 0 {
		a.X += a.Width
		a.Width = -a.Width
	}
	if a.Height < 0 {
		a.Y += a.Height
		a.Height = -a.Height
	}
	return a
}

// Pad grows the box by padding on every side.
func (a Area) Pad(padding float64) Area {
	return Area{
		X:      a.X - padding,
		Y:      a.Y - padding,
		Width:  a.Width + 2*padding,
		Height: a.Height + 2*padding,
	}
}

// Max returns the bottom-right corner.
func (a Area) Max() Point { return Point{X: a.X + a.Width, Y: a.Y + a.Height} }

func areaOf(points []Point) Area {
	if len(points) == 0 {
		return Area{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Area{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
