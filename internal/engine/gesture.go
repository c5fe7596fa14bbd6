package engine

import (
	"fmt"
	"strings"

	"RoomBoard/internal/state"
)

// Tool is the active drawing mode. Only the surrounding UI changes it.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPen
	ToolRectangle
	ToolCircle
	ToolLine
	ToolEraser
)

var toolNames = [...]string{"select", "pen", "rectangle", "circle", "line", "eraser"}

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	return []Tool{ToolSelect, ToolPen, ToolRectangle, ToolCircle, ToolLine, ToolEraser}
}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool maps a tool name back to its Tool.
func ParseTool(name string) (Tool, error) {
	for i, n := range toolNames {
		if strings.EqualFold(n, name) {
			return Tool(i), nil
		}
	}
	return ToolSelect, fmt.Errorf("unknown tool %q", name)
}

// draws reports whether the tool creates new shapes by dragging.
func (t Tool) draws() bool {
	switch t {
	case ToolPen, ToolRectangle, ToolCircle, ToolLine:
		return true
	}
	return false
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseMoving
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseMoving:
		return "moving"
	}
	return "idle"
}

// Gesture is the transient state of one pointer-down..pointer-up sequence.
type Gesture struct {
	Phase Phase
	// Tool is the tool the gesture started with. Switching tools mid-gesture
	// does not change what it produces.
	Tool   Tool
	Origin state.Point
	// Last is the previous pointer position; moves translate by the delta from it.
	Last state.Point
	// Points accumulates a pen stroke.
	Points []state.Point
	// Draft is the in-progress geometry while dragging.
	Draft state.Geometry
	// Held is the shape being relocated while moving.
	Held state.Shape
	// Detached is set once Held has been taken out of the collection.
	Detached bool
}

// startDrag enters Dragging at p.
func (g *Gesture) startDrag(tool Tool, p state.Point) {
	*g = Gesture{Phase: PhaseDragging, Tool: tool, Origin: p, Last: p}
	if tool == ToolPen {
		g.Points = []state.Point{p}
	}
	g.Draft = draftGeometry(tool, g.Origin, p, g.Points)
}

// drag updates the in-progress geometry for a pointer at p.
func (g *Gesture) drag(p state.Point) {
	if g.Tool == ToolPen && p != g.Last {
		g.Points = append(g.Points, p)
	}
	g.Last = p
	g.Draft = draftGeometry(g.Tool, g.Origin, p, g.Points)
}

// startMove enters Moving holding s.
func (g *Gesture) startMove(s state.Shape, p state.Point) {
	*g = Gesture{Phase: PhaseMoving, Tool: ToolSelect, Origin: p, Last: p, Held: s}
}

// move translates the held shape by the delta since the previous event.
func (g *Gesture) move(p state.Point) {
	dx, dy := p.Sub(g.Last)
	g.Held = g.Held.Translate(dx, dy)
	g.Last = p
}

// Moved reports whether the held shape has been displaced from where it started.
func (g *Gesture) Moved() bool { return g.Phase == PhaseMoving && g.Last != g.Origin }

func (g *Gesture) reset() { *g = Gesture{} }

func draftGeometry(tool Tool, origin, p state.Point, points []state.Point) state.Geometry {
	switch tool {
	case ToolRectangle:
		return state.NewRectangle(origin, p)
	case ToolCircle:
		return state.NewCircle(origin, p)
	case ToolLine:
		return state.NewLine(origin, p)
	case ToolPen:
		return state.NewFreehand(points)
	}
	return nil
}
