package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnknownKind is returned when a body carries a type tag no variant matches.
var ErrUnknownKind = errors.New("unknown shape type")

// wireShape is the stored body layout. Every variant shares the type tag and
// the author; the remaining fields are per variant.
type wireShape struct {
	Type     Kind         `json:"type"`
	MemberID string       `json:"memberId,omitempty"`
	X        *float64     `json:"x,omitempty"`
	Y        *float64     `json:"y,omitempty"`
	Width    *float64     `json:"width,omitempty"`
	Height   *float64     `json:"height,omitempty"`
	CenterX  *float64     `json:"centerX,omitempty"`
	CenterY  *float64     `json:"centerY,omitempty"`
	Radius   *float64     `json:"radius,omitempty"`
	X1       *float64     `json:"x1,omitempty"`
	Y1       *float64     `json:"y1,omitempty"`
	X2       *float64     `json:"x2,omitempty"`
	Y2       *float64     `json:"y2,omitempty"`
	Points   [][2]float64 `json:"inputpoint,omitempty"`
}

func f(v float64) *float64 { return &v }

// Encode serializes the shape's geometry and author into a record body.
// The persisted ID is not part of the body.
func Encode(s Shape) (string, error) {
	w := wireShape{MemberID: s.AuthorID}
	switch g := s.Geometry.(type) {
	case Rectangle:
		w.Type = KindRectangle
		w.X, w.Y, w.Width, w.Height = f(g.X), f(g.Y), f(g.Width), f(g.Height)
	case Circle:
		w.Type = KindCircle
		w.CenterX, w.CenterY, w.Radius = f(g.CenterX), f(g.CenterY), f(math.Abs(g.Radius))
	case Line:
		w.Type = KindLine
		w.X1, w.Y1, w.X2, w.Y2 = f(g.X1), f(g.Y1), f(g.X2), f(g.Y2)
	case Freehand:
		w.Type = KindFreehand
		w.Points = make([][2]float64, len(g.Points))
		for i, p := range g.Points {
			w.Points[i] = [2]float64{p.X, p.Y}
		}
	default:
		return "", fmt.Errorf("encode shape: %w: %T", ErrUnknownKind, s.Geometry)
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode shape: %w", err)
	}
	return string(data), nil
}

// Decode parses a record body. id becomes both the shape's ID and its Key.
func Decode(id, body string) (Shape, error) {
	var w wireShape
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Shape{}, fmt.Errorf("decode shape %s: %w", id, err)
	}
	g, err := w.geometry()
	if err != nil {
		return Shape{}, fmt.Errorf("decode shape %s: %w", id, err)
	}
	return Shape{ID: id, Key: id, AuthorID: w.MemberID, Geometry: g}, nil
}

func (w wireShape) geometry() (Geometry, error) {
	switch w.Type {
	case KindRectangle:
		if err := requireCoords(w.X, w.Y, w.Width, w.Height); err != nil {
			return nil, err
		}
		return Rectangle{X: *w.X, Y: *w.Y, Width: *w.Width, Height: *w.Height}, nil
	case KindCircle:
		if err := requireCoords(w.CenterX, w.CenterY, w.Radius); err != nil {
			return nil, err
		}
		return Circle{CenterX: *w.CenterX, CenterY: *w.CenterY, Radius: math.Abs(*w.Radius)}, nil
	case KindLine:
		if err := requireCoords(w.X1, w.Y1, w.X2, w.Y2); err != nil {
			return nil, err
		}
		return Line{X1: *w.X1, Y1: *w.Y1, X2: *w.X2, Y2: *w.Y2}, nil
	case KindFreehand:
		points := make([]Point, len(w.Points))
		for i, p := range w.Points {
			points[i] = Point{X: p[0], Y: p[1]}
		}
		return Freehand{Points: points}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, w.Type)
}

func requireCoords(fields ...*float64) error {
	for _, v := range fields {
		if v == nil {
			return errors.New("missing coordinate")
		}
	}
	return nil
}
