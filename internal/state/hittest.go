package state

import "math"

const (
	// LineEpsilon is the slack allowed by the collinearity test for lines.
	LineEpsilon = 1.0
	// StrokeThreshold is how close, in pixels, a point must be to a pen stroke.
	StrokeThreshold = 6.0
)

// Hit reports whether p selects g.
func Hit(p Point, g Geometry) bool {
	switch g := g.(type) {
	case Rectangle:
		a := g.Area()
		return a.X < p.X && p.X < a.X+a.Width && a.Y < p.Y && p.Y < a.Y+a.Height
	case Circle:
		return Distance(p, g.Center()) < math.Abs(g.Radius)
	case Line:
		a, b := g.Start(), g.End()
		return math.Abs(Distance(a, b)-(Distance(a, p)+Distance(b, p))) < LineEpsilon
	case Freehand:
		if len(g.Points) < 2 {
			return false
		}
		for i := 1; i < len(g.Points); i++ {
			if SegmentDistance(p, g.Points[i-1], g.Points[i], StrokeThreshold) <= StrokeThreshold {
				return true
			}
		}
	}
	return false
}

// FindAt scans shapes in order and returns the index of the first one hit by p.
// Earlier shapes win, so overlapping shapes resolve to the bottom-most.
func FindAt(p Point, shapes []Shape) (int, bool) {
	for i, s := range shapes {
		if Hit(p, s.Geometry) {
			return i, true
		}
	}
	return -1, false
}
