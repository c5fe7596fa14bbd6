package engine

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RoomBoard/internal/render"
	"RoomBoard/internal/state"
	"RoomBoard/internal/store"
)

var testRoom = store.RoomContext{RoomID: "room-1", WorkspaceID: "ws-1", MemberID: "member-1"}

type call struct {
	op   Op
	id   string
	body string
}

// fakeAdapter records every call and keeps its records in memory.
type fakeAdapter struct {
	mu      sync.Mutex
	records []store.Record
	calls   []call
	nextID  int

	listErr   error
	createErr error
	updateErr error
	deleteErr error
	// gate, when set, holds CreateShape until it is closed.
	gate chan struct{}
}

func (f *fakeAdapter) ListShapes(_ context.Context, room store.RoomContext) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: OpList})
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]store.Record(nil), f.records...), nil
}

func (f *fakeAdapter) CreateShape(ctx context.Context, room store.RoomContext, body string) (string, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: OpCreate, body: body})
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("shape-%d", f.nextID)
	f.records = append(f.records, store.Record{ID: id, RoomID: room.RoomID, MemberID: room.MemberID, Body: body})
	return id, nil
}

func (f *fakeAdapter) UpdateShape(_ context.Context, id, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: OpUpdate, id: id, body: body})
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].Body = body
		}
	}
	return nil
}

func (f *fakeAdapter) DeleteShape(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: OpDelete, id: id})
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}

// mutations returns the recorded calls other than list.
func (f *fakeAdapter) mutations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op != OpList {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAdapter) seed(t *testing.T, id string, g state.Geometry) {
	t.Helper()
	body, err := state.Encode(state.Shape{AuthorID: testRoom.MemberID, Geometry: g})
	require.NoError(t, err)
	f.records = append(f.records, store.Record{ID: id, RoomID: testRoom.RoomID, MemberID: testRoom.MemberID, Body: body})
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func newTestEngine(t *testing.T, f *fakeAdapter, opts ...Option) (*Engine, *errorSink) {
	t.Helper()
	sink := &errorSink{}
	opts = append([]Option{WithReloadOnCommit(false), WithOnError(sink.add)}, opts...)
	e := New(context.Background(), testRoom, f, opts...)
	t.Cleanup(func() {
		e.Close()
		e.Wait()
	})
	return e, sink
}

func drag(e *Engine, from, to state.Point) {
	e.PointerDown(from)
	e.PointerMove(to)
	e.PointerUp(to)
}

func decodeBody(t *testing.T, body string) state.Geometry {
	t.Helper()
	s, err := state.Decode("", body)
	require.NoError(t, err)
	return s.Geometry
}

func TestRectangleGestureCreatesShape(t *testing.T) {
	f := &fakeAdapter{}
	e, sink := newTestEngine(t, f, WithTool(ToolRectangle))

	drag(e, state.Pt(10, 10), state.Pt(50, 40))
	e.Wait()

	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	want := state.Rectangle{X: 10, Y: 10, Width: 40, Height: 30}
	assert.Equal(t, want, shapes[0].Geometry)
	assert.Equal(t, "shape-1", shapes[0].ID)
	assert.Equal(t, testRoom.MemberID, shapes[0].AuthorID)

	calls := f.mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, OpCreate, calls[0].op)
	assert.Equal(t, want, decodeBody(t, calls[0].body))
	assert.Empty(t, sink.all())
	assert.Equal(t, PhaseIdle, e.Gesture().Phase)
}

func TestToolSwitchMidGestureKeepsStartingTool(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolPen))

	e.PointerDown(state.Pt(10, 10))
	e.PointerMove(state.Pt(20, 20))
	e.PointerMove(state.Pt(30, 10))
	e.SetTool(ToolRectangle)
	assert.Equal(t, ToolPen, e.Gesture().Tool)
	e.PointerMove(state.Pt(35, 35))
	e.PointerUp(state.Pt(40, 40))
	e.Wait()

	want := state.Freehand{Points: []state.Point{
		state.Pt(10, 10), state.Pt(20, 20), state.Pt(30, 10), state.Pt(35, 35), state.Pt(40, 40),
	}}
	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, want, shapes[0].Geometry)

	// The new tool applies from the next pointer-down.
	e.SetTool(ToolSelect)
	e.PointerDown(state.Pt(60, 60))
	e.SetTool(ToolEraser)
	e.PointerUp(state.Pt(60, 60))
	assert.Equal(t, PhaseIdle, e.Gesture().Phase)

	e.SetTool(ToolRectangle)
	e.PointerDown(state.Pt(100, 100))
	e.SetTool(ToolSelect)
	e.PointerMove(state.Pt(140, 130))
	e.PointerUp(state.Pt(140, 130))
	e.Wait()

	shapes = e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, state.Rectangle{X: 100, Y: 100, Width: 40, Height: 30}, shapes[1].Geometry)
	require.Len(t, f.mutations(), 2)
}

func TestSelectMovesShape(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "r1", state.Rectangle{X: 20, Y: 20, Width: 40, Height: 30})
	e, _ := newTestEngine(t, f, WithTool(ToolSelect))
	require.Len(t, e.Shapes(), 1)

	e.PointerDown(state.Pt(30, 30))
	e.PointerMove(state.Pt(35, 35))

	scene := e.Scene()
	require.NotNil(t, scene.Moving)
	assert.Empty(t, scene.Shapes)
	assert.Equal(t, PhaseMoving, e.Gesture().Phase)

	e.PointerUp(state.Pt(35, 35))
	e.Wait()

	want := state.Rectangle{X: 25, Y: 25, Width: 40, Height: 30}
	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "r1", shapes[0].ID)
	assert.Equal(t, want, shapes[0].Geometry)

	calls := f.mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, OpUpdate, calls[0].op)
	assert.Equal(t, "r1", calls[0].id)
	assert.Equal(t, want, decodeBody(t, calls[0].body))
	assert.Nil(t, e.Scene().Moving)
}

func TestSelectMovedShapeGoesOnTop(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "a", state.Rectangle{X: 0, Y: 0, Width: 10, Height: 10})
	f.seed(t, "b", state.Rectangle{X: 100, Y: 100, Width: 10, Height: 10})
	e, _ := newTestEngine(t, f, WithTool(ToolSelect))

	drag(e, state.Pt(5, 5), state.Pt(6, 6))
	e.Wait()

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, "b", shapes[0].ID)
	assert.Equal(t, "a", shapes[1].ID)
}

func TestSelectClickWithoutMoveIssuesNoUpdate(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "r1", state.Rectangle{X: 20, Y: 20, Width: 40, Height: 30})
	e, _ := newTestEngine(t, f, WithTool(ToolSelect))

	e.PointerDown(state.Pt(30, 30))
	e.PointerUp(state.Pt(30, 30))
	e.Wait()

	assert.Empty(t, f.mutations())
	assert.Len(t, e.Shapes(), 1)
}

func TestSelectOnEmptyCanvasStaysIdle(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolSelect))

	drag(e, state.Pt(30, 30), state.Pt(40, 40))
	e.Wait()

	assert.Equal(t, PhaseIdle, e.Gesture().Phase)
	assert.Empty(t, f.mutations())
}

func TestEraserDeletesShape(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "c1", state.Circle{CenterX: 50, CenterY: 50, Radius: 20})
	f.seed(t, "l1", state.Line{X1: 0, Y1: 0, X2: 10, Y2: 0})
	e, _ := newTestEngine(t, f, WithTool(ToolEraser))

	e.PointerDown(state.Pt(55, 55))
	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "l1", shapes[0].ID)

	e.PointerUp(state.Pt(55, 55))
	e.Wait()

	calls := f.mutations()
	require.Len(t, calls, 1)
	assert.Equal(t, call{op: OpDelete, id: "c1"}, calls[0])
}

func TestEraserOnEmptyCanvasDoesNothing(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolEraser))

	e.PointerDown(state.Pt(55, 55))
	e.PointerUp(state.Pt(55, 55))
	e.Wait()

	assert.Empty(t, f.mutations())
	assert.Empty(t, e.Shapes())
}

func TestCorruptRecordSkippedOnLoad(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "a", state.Rectangle{X: 1, Y: 1, Width: 2, Height: 2})
	f.records = append(f.records, store.Record{ID: "bad", Body: "{not json"})
	f.seed(t, "b", state.Line{X1: 0, Y1: 0, X2: 3, Y2: 4})
	e, sink := newTestEngine(t, f)

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, "a", shapes[0].ID)
	assert.Equal(t, "b", shapes[1].ID)
	assert.Empty(t, sink.all())
}

func TestPenStrokeSkipsRepeatedPoints(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolPen))

	e.PointerDown(state.Pt(0, 0))
	e.PointerMove(state.Pt(1, 1))
	e.PointerMove(state.Pt(1, 1))
	e.PointerMove(state.Pt(2, 3))
	e.PointerUp(state.Pt(2, 3))
	e.Wait()

	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	want := state.Freehand{Points: []state.Point{state.Pt(0, 0), state.Pt(1, 1), state.Pt(2, 3)}}
	assert.Equal(t, want, shapes[0].Geometry)
}

func TestCircleAndLineGestures(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolCircle))

	drag(e, state.Pt(10, 10), state.Pt(50, 30))
	e.SetTool(ToolLine)
	drag(e, state.Pt(0, 0), state.Pt(30, 40))
	e.Wait()

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, state.Circle{CenterX: 30, CenterY: 20, Radius: 20}, shapes[0].Geometry)
	assert.Equal(t, state.Line{X1: 0, Y1: 0, X2: 30, Y2: 40}, shapes[1].Geometry)
	assert.Len(t, f.mutations(), 2)
}

func TestDegenerateGesturesAreDropped(t *testing.T) {
	for _, tool := range []Tool{ToolRectangle, ToolCircle, ToolLine, ToolPen} {
		t.Run(tool.String(), func(t *testing.T) {
			f := &fakeAdapter{}
			e, sink := newTestEngine(t, f, WithTool(tool))

			e.PointerDown(state.Pt(5, 5))
			e.PointerUp(state.Pt(5, 5))
			e.Wait()

			assert.Empty(t, e.Shapes())
			assert.Empty(t, f.mutations())
			assert.Empty(t, sink.all())
		})
	}
}

func TestStrayPointerUpIsNoop(t *testing.T) {
	f := &fakeAdapter{}
	changes := 0
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle), WithOnChange(func() { changes++ }))
	before := changes

	e.PointerUp(state.Pt(10, 10))
	e.PointerMove(state.Pt(20, 20))
	e.Wait()

	assert.Equal(t, before, changes)
	assert.Empty(t, e.Shapes())
	assert.Empty(t, f.mutations())
}

func TestMoveBeforeCreateResolves(t *testing.T) {
	f := &fakeAdapter{gate: make(chan struct{})}
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle))

	drag(e, state.Pt(10, 10), state.Pt(50, 40))
	e.SetTool(ToolSelect)
	drag(e, state.Pt(20, 20), state.Pt(25, 25))
	assert.Empty(t, f.mutations())

	close(f.gate)
	e.Wait()

	want := state.Rectangle{X: 15, Y: 15, Width: 40, Height: 30}
	calls := f.mutations()
	require.Len(t, calls, 2)
	assert.Equal(t, OpCreate, calls[0].op)
	assert.Equal(t, OpUpdate, calls[1].op)
	assert.Equal(t, "shape-1", calls[1].id)
	assert.Equal(t, want, decodeBody(t, calls[1].body))

	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "shape-1", shapes[0].ID)
	assert.Equal(t, want, shapes[0].Geometry)
}

func TestEraseBeforeCreateResolves(t *testing.T) {
	f := &fakeAdapter{gate: make(chan struct{})}
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle))

	drag(e, state.Pt(10, 10), state.Pt(50, 40))
	e.SetTool(ToolEraser)
	e.PointerDown(state.Pt(20, 20))
	e.PointerUp(state.Pt(20, 20))
	assert.Empty(t, e.Shapes())

	close(f.gate)
	e.Wait()

	calls := f.mutations()
	require.Len(t, calls, 2)
	assert.Equal(t, OpCreate, calls[0].op)
	assert.Equal(t, call{op: OpDelete, id: "shape-1"}, calls[1])
	assert.Empty(t, e.Shapes())
}

func TestReloadKeepsPendingDrafts(t *testing.T) {
	f := &fakeAdapter{gate: make(chan struct{})}
	f.seed(t, "r1", state.Rectangle{X: 100, Y: 100, Width: 10, Height: 10})
	e, _ := newTestEngine(t, f, WithTool(ToolLine))

	drag(e, state.Pt(0, 0), state.Pt(10, 10))
	require.NoError(t, e.Reload(context.Background()))

	shapes := e.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, "r1", shapes[0].ID)
	assert.False(t, shapes[1].Persisted())
	assert.True(t, state.IsDraftKey(shapes[1].Key))

	close(f.gate)
}

func TestReloadOnCommitAdoptsSnapshot(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle), WithReloadOnCommit(true))

	drag(e, state.Pt(10, 10), state.Pt(50, 40))
	e.Wait()

	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "shape-1", shapes[0].ID)
	assert.Equal(t, "shape-1", shapes[0].Key)
}

func TestRemoteFailureIsReportedWithoutRollback(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeAdapter{createErr: boom}
	e, sink := newTestEngine(t, f, WithTool(ToolRectangle))

	drag(e, state.Pt(10, 10), state.Pt(50, 40))
	e.Wait()

	errs := sink.all()
	require.Len(t, errs, 1)
	var serr *SyncError
	require.True(t, errors.As(errs[0], &serr))
	assert.Equal(t, OpCreate, serr.Op)
	assert.ErrorIs(t, errs[0], boom)

	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.False(t, shapes[0].Persisted())
}

func TestUpdateFailureIsReported(t *testing.T) {
	f := &fakeAdapter{updateErr: store.ErrUnauthenticated}
	f.seed(t, "r1", state.Rectangle{X: 20, Y: 20, Width: 40, Height: 30})
	e, sink := newTestEngine(t, f, WithTool(ToolSelect))

	drag(e, state.Pt(30, 30), state.Pt(40, 40))
	e.Wait()

	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], store.ErrUnauthenticated)
	assert.Contains(t, errs[0].Error(), "update shape r1")
}

func TestDeleteFailureIsReported(t *testing.T) {
	f := &fakeAdapter{deleteErr: store.ErrUnauthenticated}
	f.seed(t, "c1", state.Circle{CenterX: 50, CenterY: 50, Radius: 20})
	e, sink := newTestEngine(t, f, WithTool(ToolEraser))

	e.PointerDown(state.Pt(55, 55))
	e.PointerUp(state.Pt(55, 55))
	e.Wait()

	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], store.ErrUnauthenticated)
	assert.Contains(t, errs[0].Error(), "delete shape c1")
	var serr *SyncError
	require.ErrorAs(t, errs[0], &serr)
	assert.Equal(t, OpDelete, serr.Op)
	assert.Empty(t, e.Shapes(), "the erased shape is not restored")
}

func TestListFailureIsReported(t *testing.T) {
	boom := errors.New("offline")
	f := &fakeAdapter{listErr: boom}
	e, sink := newTestEngine(t, f)

	assert.Empty(t, e.Shapes())
	errs := sink.all()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)

	err := e.Reload(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestNotLoadedLeavesCanvasEmpty(t *testing.T) {
	f := &fakeAdapter{listErr: store.ErrNotLoaded}
	e, sink := newTestEngine(t, f)

	assert.Empty(t, e.Shapes())
	assert.Empty(t, sink.all())
	assert.NoError(t, e.Reload(context.Background()))
}

type fakeSource struct {
	handler  PointerHandler
	detached bool
}

func (s *fakeSource) Attach(h PointerHandler) { s.handler = h }
func (s *fakeSource) Detach()                 { s.handler, s.detached = nil, true }

func TestCloseDetachesAndIgnoresEvents(t *testing.T) {
	f := &fakeAdapter{}
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle))
	src := &fakeSource{}
	e.Attach(src)
	require.NotNil(t, src.handler)

	src.handler.PointerDown(state.Pt(0, 0))
	e.Close()
	assert.True(t, src.detached)

	e.PointerMove(state.Pt(20, 20))
	e.PointerUp(state.Pt(20, 20))
	e.Wait()

	assert.Empty(t, e.Shapes())
	assert.Empty(t, f.mutations())
	assert.Equal(t, PhaseIdle, e.Gesture().Phase)
}

type opRecorder struct{ ops []string }

func (r *opRecorder) Clear(color.Color)                              { r.ops = append(r.ops, "clear") }
func (r *opRecorder) StrokeLine(_, _ state.Point, _ color.Color)     { r.ops = append(r.ops, "line") }
func (r *opRecorder) StrokeRect(state.Area, color.Color)             { r.ops = append(r.ops, "rect") }
func (r *opRecorder) StrokeCircle(state.Point, float64, color.Color) { r.ops = append(r.ops, "circle") }
func (r *opRecorder) StrokeDashedRect(state.Area, color.Color)       { r.ops = append(r.ops, "dashed") }

func TestRenderDrawsDraftOverlay(t *testing.T) {
	f := &fakeAdapter{}
	f.seed(t, "c1", state.Circle{CenterX: 50, CenterY: 50, Radius: 5})
	e, _ := newTestEngine(t, f, WithTool(ToolRectangle), WithRenderer(render.New(render.DefaultStyle())))

	e.PointerDown(state.Pt(0, 0))
	e.PointerMove(state.Pt(10, 10))

	rec := &opRecorder{}
	e.Render(rec)
	assert.Equal(t, []string{"clear", "circle", "rect"}, rec.ops)
}

func TestParseTool(t *testing.T) {
	for _, tool := range Tools() {
		got, err := ParseTool(tool.String())
		require.NoError(t, err)
		assert.Equal(t, tool, got)
	}
	_, err := ParseTool("lasso")
	assert.Error(t, err)
}
