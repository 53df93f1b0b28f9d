package viewport

import (
	"math"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/geom"
)

// State is the pointer-interaction state of the viewport.
// Transitions: Idle -> Dragging -> Idle on pointer down/up, and
// Idle -> Resizing -> Idle while the host's resize handle is held.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// Key identifies a keyboard control recognized by the engine.
type Key int

const (
	KeyArrowUp Key = iota
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyRotateCCW // q
	KeyRotateCW  // e
)

// keyRotateStep is the fixed rotation applied per q/e key press.
const keyRotateStep = math.Pi / 36

// State returns the current interaction state.
func (e *Engine) State() State { return e.state }

// OnTransition registers a hook invoked after every state transition.
// Hosts use it to attach and detach raw input listeners as a side effect of
// entering or leaving a state, instead of registering them conditionally all
// over the event handlers.
func (e *Engine) OnTransition(fn func(from, to State)) {
	e.onTransition = fn
}

func (e *Engine) transition(to State) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	if e.onTransition != nil {
		e.onTransition(from, to)
	}
}

// PointerDown begins a drag-pan from the given screen position. Mouse and
// touch are treated uniformly as a single active contact point; additional
// contacts while dragging are ignored.
func (e *Engine) PointerDown(p geom.Point) {
	if e.state != StateIdle {
		return
	}
	e.lastPointer = p
	e.transition(StateDragging)
}

// PointerMove pans by the delta against the last pointer position while a
// drag is active.
func (e *Engine) PointerMove(p geom.Point) {
	if e.state != StateDragging {
		return
	}
	e.Pan(p.X-e.lastPointer.X, p.Y-e.lastPointer.Y)
	e.lastPointer = p
}

// PointerUp ends an active drag.
func (e *Engine) PointerUp() {
	if e.state != StateDragging {
		return
	}
	e.transition(StateIdle)
}

// BeginResize enters the resizing state. While resizing, drag-pan input is
// ignored; the host feeds size changes through SetCanvasSize.
func (e *Engine) BeginResize() {
	if e.state != StateIdle {
		return
	}
	e.transition(StateResizing)
}

// EndResize leaves the resizing state.
func (e *Engine) EndResize() {
	if e.state != StateResizing {
		return
	}
	e.transition(StateIdle)
}

// HandleKey applies a keyboard control. Arrow keys pan by
// KeyboardPanSpeed / scale so the perceived pan speed is constant regardless
// of zoom level; q/e rotate by a fixed step. No-op unless keyboard controls
// are enabled.
func (e *Engine) HandleKey(key Key) {
	if !e.cfg.EnableKeyboardControls {
		return
	}

	step := e.cfg.KeyboardPanSpeed / e.tf.Scale
	switch key {
	case KeyArrowUp:
		e.Pan(0, -step)
	case KeyArrowDown:
		e.Pan(0, step)
	case KeyArrowLeft:
		e.Pan(-step, 0)
	case KeyArrowRight:
		e.Pan(step, 0)
	case KeyRotateCCW:
		e.Rotate(-keyRotateStep)
	case KeyRotateCW:
		e.Rotate(keyRotateStep)
	}
}
