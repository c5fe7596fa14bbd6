// Package engine turns pointer events into shapes and keeps a room's shape
// collection in step with the remote store.
package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"RoomBoard/internal/render"
	"RoomBoard/internal/state"
	"RoomBoard/internal/store"
)

const defaultTimeout = 10 * time.Second

// PointerHandler receives canvas-coordinate pointer events.
type PointerHandler interface {
	PointerDown(p state.Point)
	PointerMove(p state.Point)
	PointerUp(p state.Point)
}

// PointerSource is an input surface that delivers events to one handler at a time.
type PointerSource interface {
	Attach(h PointerHandler)
	Detach()
}

type Option func(*Engine)

func WithRenderer(r *render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithOnError installs the callback that receives *SyncError values.
func WithOnError(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithOnChange installs the callback run whenever the scene needs repainting.
func WithOnChange(fn func()) Option {
	return func(e *Engine) { e.onChange = fn }
}

// WithReloadOnCommit controls whether each successful mutation is followed by a
// snapshot reload. It is on by default.
func WithReloadOnCommit(on bool) Option {
	return func(e *Engine) { e.reloadOnCommit = on }
}

// WithTimeout bounds every adapter call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithTool(t Tool) Option {
	return func(e *Engine) { e.tool = t }
}

type pendingUpdate struct {
	shape state.Shape
	seq   uint64
}

// Engine is the drawing engine for one room.
type Engine struct {
	room     store.RoomContext
	adapter  store.Adapter
	shapes   *state.Collection
	renderer *render.Renderer

	mu      sync.Mutex
	tool    Tool
	gesture Gesture
	closed  bool
	input   PointerSource

	// keyed by draft key
	creating    map[string]bool
	movedDraft  map[string]bool
	erasedDraft map[string]bool
	// keyed by persisted id
	updating map[string]pendingUpdate
	deleting map[string]bool

	updateSeq  uint64
	loadSeq    uint64
	appliedSeq uint64

	inflight       sync.WaitGroup
	timeout        time.Duration
	reloadOnCommit bool
	onError        func(error)
	onChange       func()
}

// New builds an engine for room and loads its first snapshot. A failed load is
// reported through the error callback; the engine starts empty in that case.
func New(ctx context.Context, room store.RoomContext, adapter store.Adapter, opts ...Option) *Engine {
	e := &Engine{
		room:           room,
		adapter:        adapter,
		shapes:         state.NewCollection(),
		renderer:       render.New(render.DefaultStyle()),
		creating:       make(map[string]bool),
		movedDraft:     make(map[string]bool),
		erasedDraft:    make(map[string]bool),
		updating:       make(map[string]pendingUpdate),
		deleting:       make(map[string]bool),
		timeout:        defaultTimeout,
		reloadOnCommit: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	_ = e.Reload(ctx)
	return e
}

func (e *Engine) Room() store.RoomContext { return e.room }

// Attach connects the engine to an input surface. Close detaches it again.
func (e *Engine) Attach(src PointerSource) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	prev := e.input
	e.input = src
	e.mu.Unlock()
	if prev != nil && prev != src {
		prev.Detach()
	}
	src.Attach(e)
}

// Close detaches the input surface and stops issuing remote calls. Calls
// already in flight are left to finish; Wait blocks on them.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.gesture.Phase == PhaseMoving && e.gesture.Detached {
		e.shapes.Append(e.gesture.Held)
	}
	e.gesture.reset()
	src := e.input
	e.input = nil
	e.mu.Unlock()
	if src != nil {
		src.Detach()
	}
	log.Printf("[ENGINE] Closed engine for room %s", e.room.RoomID)
}

// Wait blocks until every remote call issued so far has completed.
func (e *Engine) Wait() { e.inflight.Wait() }

func (e *Engine) SetTool(t Tool) {
	e.mu.Lock()
	e.tool = t
	e.mu.Unlock()
}

func (e *Engine) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// Gesture returns a copy of the current gesture state.
func (e *Engine) Gesture() Gesture {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.gesture
	g.Points = append([]state.Point(nil), g.Points...)
	return g
}

// Shapes returns the collection in z-order. A shape being moved is not part of it.
func (e *Engine) Shapes() []state.Shape { return e.shapes.Shapes() }

// Scene captures what should be drawn right now.
func (e *Engine) Scene() render.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	scene := render.Scene{Shapes: e.shapes.Shapes()}
	switch e.gesture.Phase {
	case PhaseMoving:
		if e.gesture.Detached {
			held := e.gesture.Held
			scene.Moving = &held
		}
	case PhaseDragging:
		if e.gesture.Draft != nil {
			scene.Draft = &state.Shape{AuthorID: e.room.MemberID, Geometry: e.gesture.Draft}
		}
	}
	return scene
}

func (e *Engine) Render(s render.Surface) { e.renderer.Render(s, e.Scene()) }

func (e *Engine) Renderer() *render.Renderer { return e.renderer }

func (e *Engine) PointerDown(p state.Point) { e.handle(func() bool { return e.pointerDown(p) }) }

func (e *Engine) PointerMove(p state.Point) { e.handle(func() bool { return e.pointerMove(p) }) }

func (e *Engine) PointerUp(p state.Point) { e.handle(func() bool { return e.pointerUp(p) }) }

func (e *Engine) handle(fn func() bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	changed := fn()
	e.mu.Unlock()
	if changed {
		e.changed()
	}
}

func (e *Engine) pointerDown(p state.Point) bool {
	changed := false
	if e.gesture.Phase != PhaseIdle {
		// the previous gesture lost its pointer-up
		changed = e.pointerUp(e.gesture.Last)
	}
	switch {
	case e.tool == ToolSelect:
		s, ok := e.shapes.At(p)
		if !ok {
			return changed
		}
		e.gesture.startMove(s, p)
		return changed
	case e.tool == ToolEraser:
		s, ok := e.shapes.At(p)
		if !ok {
			return changed
		}
		e.detach(s)
		e.erase(s)
		return true
	case e.tool.draws():
		e.gesture.startDrag(e.tool, p)
		return true
	}
	return changed
}

func (e *Engine) pointerMove(p state.Point) bool {
	switch e.gesture.Phase {
	case PhaseDragging:
		e.gesture.drag(p)
		return true
	case PhaseMoving:
		if !e.gesture.Detached {
			e.detach(e.gesture.Held)
			e.gesture.Detached = true
		}
		e.gesture.move(p)
		return true
	}
	return false
}

func (e *Engine) pointerUp(p state.Point) bool {
	switch e.gesture.Phase {
	case PhaseDragging:
		e.gesture.drag(p)
		g := e.gesture.Draft
		e.gesture.reset()
		if g == nil || state.Degenerate(g) {
			return true
		}
		s := state.Shape{Key: state.NewDraftKey(), AuthorID: e.room.MemberID, Geometry: g}
		e.shapes.Append(s)
		e.create(s)
		return true
	case PhaseMoving:
		if p != e.gesture.Last {
			e.pointerMove(p)
		}
		held, detached, moved := e.gesture.Held, e.gesture.Detached, e.gesture.Moved()
		e.gesture.reset()
		if !detached {
			return false
		}
		e.shapes.Append(held)
		if moved {
			e.update(held)
		}
		return true
	}
	return false
}

// detach removes s from the collection. A reload may have replaced a draft with
// its persisted copy, so the id is tried when the key is gone.
func (e *Engine) detach(s state.Shape) {
	if _, ok := e.shapes.Remove(s.Key); ok || s.ID == "" {
		return
	}
	e.shapes.Remove(s.ID)
}

func (e *Engine) create(s state.Shape) {
	body, err := state.Encode(s)
	if err != nil {
		e.fail(OpCreate, s.Key, err)
		return
	}
	e.creating[s.Key] = true
	key := s.Key
	e.dispatch(OpCreate, key, func(ctx context.Context) error {
		id, err := e.adapter.CreateShape(ctx, e.room, body)
		if err != nil {
			return err
		}
		e.created(key, id)
		return nil
	})
}

func (e *Engine) created(key, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.creating, key)
	e.shapes.AssignID(key, id)
	if e.gesture.Phase == PhaseMoving && e.gesture.Held.Key == key {
		e.gesture.Held.ID = id
	}
	erased, moved := e.erasedDraft[key], e.movedDraft[key]
	delete(e.erasedDraft, key)
	delete(e.movedDraft, key)
	log.Printf("[ENGINE] Created shape %s for %s", id, key)
	if e.closed {
		return
	}
	switch {
	case erased:
		e.erase(state.Shape{ID: id, Key: key})
	case moved:
		if s, ok := e.shapes.Get(key); ok {
			e.update(s)
		}
	}
}

func (e *Engine) update(s state.Shape) {
	if !s.Persisted() {
		if e.creating[s.Key] {
			e.movedDraft[s.Key] = true
		}
		return
	}
	body, err := state.Encode(s)
	if err != nil {
		e.fail(OpUpdate, s.ID, err)
		return
	}
	e.updateSeq++
	seq := e.updateSeq
	e.updating[s.ID] = pendingUpdate{shape: s, seq: seq}
	id := s.ID
	e.dispatch(OpUpdate, id, func(ctx context.Context) error {
		err := e.adapter.UpdateShape(ctx, id, body)
		e.mu.Lock()
		if u, ok := e.updating[id]; ok && u.seq == seq {
			delete(e.updating, id)
		}
		e.mu.Unlock()
		return err
	})
}

func (e *Engine) erase(s state.Shape) {
	if !s.Persisted() {
		if e.creating[s.Key] {
			e.erasedDraft[s.Key] = true
		}
		return
	}
	delete(e.updating, s.ID)
	e.deleting[s.ID] = true
	id := s.ID
	e.dispatch(OpDelete, id, func(ctx context.Context) error {
		err := e.adapter.DeleteShape(ctx, id)
		e.mu.Lock()
		delete(e.deleting, id)
		e.mu.Unlock()
		return err
	})
}

// dispatch runs call on its own goroutine. Must be called with e.mu held.
func (e *Engine) dispatch(op Op, ref string, call func(ctx context.Context) error) {
	if e.closed {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := call(ctx); err != nil {
			e.failed(op, ref, err)
			return
		}
		if e.reloadOnCommit && !e.isClosed() {
			rctx, rcancel := context.WithTimeout(context.Background(), e.timeout)
			defer rcancel()
			_ = e.Reload(rctx)
		}
	}()
}

func (e *Engine) failed(op Op, ref string, err error) {
	e.mu.Lock()
	if op == OpCreate {
		delete(e.creating, ref)
		delete(e.movedDraft, ref)
		delete(e.erasedDraft, ref)
	}
	e.mu.Unlock()
	e.report(&SyncError{Op: op, Ref: ref, Err: err})
}

// fail reports a synchronous failure while e.mu is held.
func (e *Engine) fail(op Op, ref string, err error) {
	serr := &SyncError{Op: op, Ref: ref, Err: err}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		e.report(serr)
	}()
}

func (e *Engine) report(err *SyncError) {
	log.Printf("[ENGINE] Sync failed: %v", err)
	if e.onError != nil {
		e.onError(err)
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Reload fetches the room snapshot and rebuilds the collection from it.
// Drafts still waiting for their create, the shape being moved, deletes in
// flight and unconfirmed updates are carried over. A snapshot that arrives
// after a newer one has been applied is discarded.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	e.loadSeq++
	seq := e.loadSeq
	e.mu.Unlock()

	records, err := e.adapter.ListShapes(ctx, e.room)
	if err != nil && !errors.Is(err, store.ErrNotLoaded) {
		serr := &SyncError{Op: OpList, Err: err}
		e.report(serr)
		return serr
	}
	snapshot := decodeRecords(records)

	e.mu.Lock()
	if seq < e.appliedSeq {
		e.mu.Unlock()
		return nil
	}
	e.appliedSeq = seq
	e.shapes.Replace(e.merge(snapshot))
	e.mu.Unlock()
	e.changed()
	return nil
}

func decodeRecords(records []store.Record) []state.Shape {
	out := make([]state.Shape, 0, len(records))
	for _, rec := range records {
		s, err := state.Decode(rec.ID, rec.Body)
		if err != nil {
			log.Printf("[ENGINE] Skipping shape %s: %v", rec.ID, err)
			continue
		}
		if rec.MemberID != "" {
			s.AuthorID = rec.MemberID
		}
		out = append(out, s)
	}
	return out
}

// merge must be called with e.mu held.
func (e *Engine) merge(snapshot []state.Shape) []state.Shape {
	var held string
	if e.gesture.Phase == PhaseMoving && e.gesture.Detached {
		held = e.gesture.Held.ID
	}
	out := make([]state.Shape, 0, len(snapshot))
	for _, s := range snapshot {
		if e.deleting[s.ID] || (held != "" && s.ID == held) {
			continue
		}
		if u, ok := e.updating[s.ID]; ok {
			s.Geometry = u.shape.Geometry
		}
		out = append(out, s)
	}
	for _, s := range e.shapes.Shapes() {
		if !s.Persisted() && e.creating[s.Key] {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}
