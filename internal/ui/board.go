package ui

import (
	"image"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"RoomBoard/internal/engine"
	"RoomBoard/internal/render"
	"RoomBoard/internal/state"
)

// Painter draws a whole frame. The engine is the painter of a live board.
type Painter interface {
	Render(s render.Surface)
}

// BoardWidget is the drawing surface. It forwards primary-button gestures to
// the attached handler and repaints from its painter.
type BoardWidget struct {
	widget.BaseWidget
	mu        sync.Mutex
	handler   engine.PointerHandler
	painter   Painter
	raster    *render.Raster
	thick     int
	drawing   bool
	statusBar *widget.Label
	// running is set once the fyne event loop has started.
	running atomic.Bool
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ engine.PointerSource = (*BoardWidget)(nil)

func NewBoardWidget(thick int) *BoardWidget {
	b := &BoardWidget{
		thick:     thick,
		statusBar: widget.NewLabel("Ready"),
	}
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) Attach(h engine.PointerHandler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *BoardWidget) Detach() {
	b.mu.Lock()
	b.handler = nil
	b.drawing = false
	b.mu.Unlock()
}

func (b *BoardWidget) SetPainter(p Painter) {
	b.mu.Lock()
	b.painter = p
	b.mu.Unlock()
	b.Changed()
}

func (b *BoardWidget) StatusBar() *widget.Label { return b.statusBar }

// SetStatus is safe to call from any goroutine.
func (b *BoardWidget) SetStatus(text string) {
	if !b.running.Load() {
		b.statusBar.SetText(text)
		return
	}
	fyne.Do(func() { b.statusBar.SetText(text) })
}

// ShowError reports a sync failure in the status bar.
func (b *BoardWidget) ShowError(err error) {
	b.SetStatus("Sync failed: " + err.Error())
}

// Changed schedules a repaint. It is safe to call from any goroutine.
// Before the event loop starts the first frame picks everything up anyway.
func (b *BoardWidget) Changed() {
	if !b.running.Load() {
		return
	}
	fyne.Do(b.Refresh)
}

func toPoint(p fyne.Position) state.Point {
	return state.Pt(float64(p.X), float64(p.Y))
}

func (b *BoardWidget) target() engine.PointerHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	h := b.target()
	if h == nil {
		return
	}
	b.mu.Lock()
	b.drawing = true
	b.mu.Unlock()
	h.PointerDown(toPoint(e.Position))
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.mu.Lock()
	drawing, h := b.drawing, b.handler
	b.mu.Unlock()
	if drawing && h != nil {
		h.PointerMove(toPoint(e.Position))
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.mu.Lock()
	drawing, h := b.drawing, b.handler
	b.drawing = false
	b.mu.Unlock()
	if drawing && h != nil {
		h.PointerUp(toPoint(e.Position))
	}
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseOut()                      {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}
func (b *BoardWidget) DragEnd()                       {}

// paint renders the current frame at the widget's logical size so image
// pixels line up with pointer coordinates.
func (b *BoardWidget) paint(_, _ int) image.Image {
	size := b.Size()
	w, h := int(size.Width), int(size.Height)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.raster == nil {
		b.raster = render.NewRaster(w, h, b.thick)
	} else {
		b.raster.Resize(w, h)
	}
	if b.painter != nil {
		b.painter.Render(b.raster)
	} else {
		b.raster.Clear(render.DefaultStyle().Background)
	}
	return b.raster.Image()
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.image = canvas.NewRaster(b.paint)
	return r
}

type boardWidgetRenderer struct {
	board *BoardWidget
	image *canvas.Raster
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image}
}

func (r *boardWidgetRenderer) Refresh() {
	r.image.Refresh()
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.image.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}
