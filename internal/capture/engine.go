// Package capture owns the single user-drawn polygon and the draw gesture
// state machine.
package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"geovisor-service/internal/geodesic"
	"geovisor-service/internal/models"
)

type State string

const (
	StateIdle      State = "idle"
	StateDrawing   State = "drawing"
	StateFinalized State = "finalized"
)

type EventKind string

const (
	EventVertexAdded      EventKind = "vertexAdded"
	EventPolygonFinalized EventKind = "polygonFinalized"
	EventPolygonCleared   EventKind = "polygonCleared"
)

// Event is the closed message set the engine emits. AreaHectares is nil on
// polygonCleared, signaling "no polygon".
type Event struct {
	Kind         EventKind
	VertexCount  int
	Polygon      *models.Polygon
	AreaHectares *float64
}

// Gate is the externally supplied precondition checked at the moment a draw
// finishes. Finishing is rejected while it returns false.
type Gate func() bool

// Engine mediates create/edit/delete gestures for at most one polygon. It is
// a constructed, disposable object owned by whatever mounts the map session,
// never a package-level singleton. All gestures are serialized by the
// engine's mutex; listeners run synchronously under it and must not call
// back into the engine.
type Engine struct {
	mu        sync.Mutex
	state     State
	vertices  models.Ring
	finalized *models.Polygon
	hectares  *float64
	gate      Gate
	listeners []func(Event)
	labelFn   func(models.Ring) string
}

func NewEngine(gate Gate) *Engine {
	if gate == nil {
		gate = func() bool { return true }
	}
	return &Engine{state: StateIdle, gate: gate}
}

// Subscribe registers a listener for the engine's events.
func (e *Engine) Subscribe(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

func (e *Engine) emitLocked(ev Event) {
	for _, fn := range e.listeners {
		fn(ev)
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) VertexCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vertices)
}

// Polygon returns the finalized polygon, if any.
func (e *Engine) Polygon() (models.Polygon, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized == nil {
		return models.Polygon{}, false
	}
	return *e.finalized, true
}

func (e *Engine) AreaHectares() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hectares == nil {
		return 0, false
	}
	return *e.hectares, true
}

// StartDraw begins a fresh drawing. An existing finalized polygon is
// cleared first so at most one polygon ever exists.
func (e *Engine) StartDraw() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized != nil {
		e.finalized = nil
		e.hectares = nil
		e.emitLocked(Event{Kind: EventPolygonCleared})
	}
	e.vertices = nil
	e.state = StateDrawing
}

// AddVertex appends a point to the in-progress ring. Area has no meaning
// yet; the vertex count is exposed for live feedback.
func (e *Engine) AddVertex(p models.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing {
		return fmt.Errorf("badrequest: cannot add vertex while %s", e.state)
	}
	e.vertices = append(e.vertices, p)
	e.emitLocked(Event{Kind: EventVertexAdded, VertexCount: len(e.vertices)})
	return nil
}

// UndoLastVertex supports the right-click cancel-last-step gesture.
func (e *Engine) UndoLastVertex() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing {
		return fmt.Errorf("badrequest: cannot undo while %s", e.state)
	}
	if len(e.vertices) == 0 {
		return fmt.Errorf("badrequest: no vertices to undo")
	}
	e.vertices = e.vertices[:len(e.vertices)-1]
	return nil
}

// Finish closes the drawing. The ring needs at least 3 points and the gate
// must accept at this moment; on rejection the accumulated vertices are
// discarded and the engine returns to idle so no uninterpretable geometry
// survives.
func (e *Engine) Finish() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDrawing {
		return fmt.Errorf("badrequest: no drawing in progress")
	}
	if !e.gate() {
		e.vertices = nil
		e.state = StateIdle
		return fmt.Errorf("badrequest: select a locality and crop before drawing the plantation area")
	}
	if len(e.vertices) < 3 {
		e.vertices = nil
		e.state = StateIdle
		return fmt.Errorf("badrequest: a polygon needs at least 3 points")
	}

	poly := models.Polygon{Outer: e.vertices}
	ha := geodesic.PolygonHectares(poly)
	e.finalized = &poly
	e.hectares = &ha
	e.vertices = nil
	e.state = StateFinalized
	e.emitLocked(Event{Kind: EventPolygonFinalized, Polygon: &poly, AreaHectares: &ha})
	return nil
}

// AdoptPolygon installs an externally sourced polygon (a file import) as
// the finalized one, replacing any in-progress drawing. The finish gate
// does not apply: imports may arrive before the selection path is set,
// which the reverse locality lookup then fills in.
func (e *Engine) AdoptPolygon(poly models.Polygon) error {
	if len(poly.Outer) < 3 {
		return fmt.Errorf("badrequest: a polygon needs at least 3 points")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ha := geodesic.PolygonHectares(poly)
	e.finalized = &poly
	e.hectares = &ha
	e.vertices = nil
	e.state = StateFinalized
	e.emitLocked(Event{Kind: EventPolygonFinalized, Polygon: &poly, AreaHectares: &ha})
	return nil
}

// Delete removes the finalized polygon and announces the absent area.
func (e *Engine) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateFinalized {
		return fmt.Errorf("badrequest: no finalized polygon to delete")
	}
	e.finalized = nil
	e.hectares = nil
	e.state = StateIdle
	e.emitLocked(Event{Kind: EventPolygonCleared})
	return nil
}

// Reset returns the engine to idle without emitting, for a full-form reset
// where the selection machine announces the wipe itself.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.state = StateIdle
	e.vertices = nil
	e.finalized = nil
	e.hectares = nil
}

// Dispose detaches all listeners. The engine is unusable afterwards.
func (e *Engine) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
	e.resetLocked()
}

// SetLabelFormatter installs the cosmetic live-measurement formatter.
func (e *Engine) SetLabelFormatter(fn func(models.Ring) string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.labelFn = fn
}

// MeasurementLabel renders the live area label for the in-progress ring. A
// formatting failure must never abort the gesture, so panics degrade to an
// empty label.
func (e *Engine) MeasurementLabel() (label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("measurement label formatting failed", "cause", r)
			label = ""
		}
	}()
	if e.labelFn == nil || len(e.vertices) < 3 {
		return ""
	}
	return e.labelFn(e.vertices)
}
