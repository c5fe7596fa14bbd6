// Package render draws a room's shapes onto a Surface.
package render

import (
	"image/color"
	"math"

	"golang.org/x/image/colornames"

	"RoomBoard/internal/state"
)

// Surface is anything the renderer can stroke outlines onto.
type Surface interface {
	// Clear wipes the surface and fills it with bg.
	Clear(bg color.Color)
	StrokeLine(a, b state.Point, col color.Color)
	StrokeRect(area state.Area, col color.Color)
	StrokeCircle(center state.Point, radius float64, col color.Color)
	// StrokeDashedRect outlines area with a dashed line.
	StrokeDashedRect(area state.Area, col color.Color)
}

// Style holds the fixed palette used for every shape.
type Style struct {
	Background color.Color
	Stroke     color.Color
	Accent     color.Color
	// Padding is added around a moving shape's highlight box.
	Padding float64
}

func DefaultStyle() Style {
	return Style{
		Background: colornames.Black,
		Stroke:     colornames.White,
		Accent:     colornames.Dodgerblue,
		Padding:    10,
	}
}

// Scene is everything visible in one frame.
type Scene struct {
	Shapes []state.Shape
	// Moving is the shape being relocated, held outside Shapes while it moves.
	Moving *state.Shape
	// Draft is the shape being drawn by the current gesture.
	Draft *state.Shape
}

type Renderer struct {
	Style Style
}

func New(style Style) *Renderer { return &Renderer{Style: style} }

// Render redraws the whole scene. It keeps no state between calls.
func (r *Renderer) Render(s Surface, scene Scene) {
	s.Clear(r.Style.Background)
	for _, shape := range scene.Shapes {
		r.stroke(s, shape.Geometry, r.Style.Stroke)
	}
	if scene.Moving != nil {
		box := state.Bounds(scene.Moving.Geometry).Pad(r.Style.Padding)
		s.StrokeDashedRect(box, r.Style.Accent)
		r.stroke(s, scene.Moving.Geometry, r.Style.Stroke)
	}
	if scene.Draft != nil {
		r.stroke(s, scene.Draft.Geometry, r.Style.Stroke)
	}
}

func (r *Renderer) stroke(s Surface, g state.Geometry, col color.Color) {
	switch g := g.(type) {
	case state.Rectangle:
		s.StrokeRect(g.Area(), col)
	case state.Circle:
		s.StrokeCircle(g.Center(), math.Abs(g.Radius), col)
	case state.Line:
		s.StrokeLine(g.Start(), g.End(), col)
	case state.Freehand:
		for i := 1; i < len(g.Points); i++ {
			s.StrokeLine(g.Points[i-1], g.Points[i], col)
		}
	}
}
