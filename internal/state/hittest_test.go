package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHitRectangle(t *testing.T) {
	r := Rectangle{X: 20, Y: 20, Width: 40, Height: 30}

	assert.True(t, Hit(Pt(21, 21), r))
	assert.True(t, Hit(Pt(59, 49), r))
	assert.False(t, Hit(Pt(20, 30), r), "border is excluded")
	assert.False(t, Hit(Pt(10, 30), r))
	assert.False(t, Hit(Pt(40, 51), r))

	// A rectangle dragged up and to the left covers the same box.
	assert.True(t, Hit(Pt(30, 30), Rectangle{X: 60, Y: 50, Width: -40, Height: -30}))
}

func TestHitRectangleGrid(t *testing.T) {
	r := Rectangle{X: -15, Y: 7, Width: 33, Height: 12}
	for x := -30.0; x <= 30; x += 1.5 {
		for y := -5.0; y <= 30; y += 1.5 {
			inside := x > -15 && x < 18 && y > 7 && y < 19
			assert.Equal(t, inside, Hit(Pt(x, y), r), "point (%v,%v)", x, y)
		}
	}
}

func TestHitCircle(t *testing.T) {
	c := Circle{CenterX: 0, CenterY: 0, Radius: 10}
	for x := -15.0; x <= 15; x++ {
		for y := -15.0; y <= 15; y++ {
			p := Pt(x, y)
			assert.Equal(t, Distance(p, c.Center()) < 10, Hit(p, c), "point %v", p)
		}
	}
	assert.False(t, Hit(Pt(10, 0), c), "boundary is excluded")
	assert.False(t, Hit(Pt(0, -10), c))
}

func TestHitLine(t *testing.T) {
	l := Line{X1: 0, Y1: 0, X2: 100, Y2: 0}

	assert.True(t, Hit(Pt(50, 0), l))
	assert.True(t, Hit(Pt(50, 3), l))
	assert.False(t, Hit(Pt(50, 20), l))
	assert.False(t, Hit(Pt(120, 0), l), "beyond the end of the segment")
}

func TestHitFreehand(t *testing.T) {
	stroke := Freehand{Points: []Point{Pt(0, 0), Pt(100, 0), Pt(100, 100)}}

	assert.True(t, Hit(Pt(50, StrokeThreshold-1), stroke))
	assert.True(t, Hit(Pt(100+StrokeThreshold-1, 50), stroke))
	assert.False(t, Hit(Pt(50, StrokeThreshold+1), stroke))
	assert.False(t, Hit(Pt(50, 50), stroke))
}

func TestHitFreehandDegenerate(t *testing.T) {
	assert.False(t, Hit(Pt(0, 0), Freehand{Points: []Point{Pt(0, 0)}}))
	assert.False(t, Hit(Pt(0, 0), Freehand{}))
}

func TestFindAtReturnsFirstMatch(t *testing.T) {
	shapes := []Shape{
		{Key: "bottom", Geometry: Rectangle{X: 0, Y: 0, Width: 100, Height: 100}},
		{Key: "top", Geometry: Rectangle{X: 10, Y: 10, Width: 20, Height: 20}},
	}

	i, ok := FindAt(Pt(15, 15), shapes)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = FindAt(Pt(500, 500), shapes)
	assert.False(t, ok)
}
