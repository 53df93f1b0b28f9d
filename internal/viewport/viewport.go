package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/geom"
)

// ErrInvalidScaleBounds is returned when an engine is constructed with
// MinScale > MaxScale.
var ErrInvalidScaleBounds = errors.New("min scale exceeds max scale")

// Transform is the current viewport transform of an authoring canvas.
// It is mutated only through Engine operations; callers read it each render.
type Transform struct {
	Scale    float64 `json:"scale"`
	PanX     float64 `json:"panX"`
	PanY     float64 `json:"panY"`
	Rotation float64 `json:"rotation"` // radians
}

// CSSString renders the transform in the order the host surface applies it.
func (t Transform) CSSString() string {
	return fmt.Sprintf("scale(%g) translate(%gpx, %gpx) rotate(%grad)",
		t.Scale, t.PanX, t.PanY, t.Rotation)
}

// Config is the immutable engine configuration, supplied at construction.
type Config struct {
	MinScale               float64
	MaxScale               float64
	ScaleStep              float64
	EnableZoom             bool
	EnablePan              bool
	EnableRotation         bool
	EnableKeyboardControls bool
	KeyboardPanSpeed       float64
}

// DefaultConfig returns the configuration used by the authoring stages.
func DefaultConfig() Config {
	return Config{
		MinScale:               0.1,
		MaxScale:               5,
		ScaleStep:              0.1,
		EnableZoom:             true,
		EnablePan:              true,
		EnableRotation:         true,
		EnableKeyboardControls: true,
		KeyboardPanSpeed:       20,
	}
}

// CanvasSize is the logical pixel size of the host container. The transform
// origin is its center. The host updates it whenever the container resizes;
// the engine tolerates a size change at any time.
type CanvasSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Engine owns scale/pan/rotation state for a canvas surface and converts
// between screen (pointer) coordinates and canvas-logical coordinates.
// All methods run synchronously on the host's event loop; the engine does
// no locking of its own.
type Engine struct {
	cfg    Config
	tf     Transform
	size   CanvasSize
	origin geom.Point // container offset within the screen

	state        State
	lastPointer  geom.Point
	onTransition func(from, to State)
}

// New creates an engine with the given configuration.
// A configuration with MinScale > MaxScale is rejected outright.
func New(cfg Config) (*Engine, error) {
	if cfg.MinScale > cfg.MaxScale {
		return nil, fmt.Errorf("viewport config: %w (min %g, max %g)",
			ErrInvalidScaleBounds, cfg.MinScale, cfg.MaxScale)
	}
	return &Engine{
		cfg:   cfg,
		tf:    Transform{Scale: 1},
		state: StateIdle,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Transform returns the current transform snapshot.
func (e *Engine) Transform() Transform { return e.tf }

// CanvasSize returns the current container size.
func (e *Engine) CanvasSize() CanvasSize { return e.size }

// SetCanvasSize updates the container size. Valid in any interaction state.
func (e *Engine) SetCanvasSize(width, height float64) {
	e.size = CanvasSize{Width: width, Height: height}
}

// SetOrigin sets the container's offset within the screen, used when pointer
// events arrive in page coordinates rather than container coordinates.
func (e *Engine) SetOrigin(x, y float64) {
	e.origin = geom.Point{X: x, Y: y}
}

// SetScale sets the scale directly, clamped to the configured bounds.
// Unlike Zoom it is not gated by EnableZoom: the direct API is a host-level
// override channel, only the delta-based convenience operation is gated.
func (e *Engine) SetScale(value float64) {
	e.tf.Scale = e.clampScale(value)
}

// Zoom adjusts the scale by delta steps. No-op when zooming is disabled.
func (e *Engine) Zoom(delta float64) {
	if !e.cfg.EnableZoom {
		return
	}
	e.tf.Scale = e.clampScale(e.tf.Scale + delta*e.cfg.ScaleStep)
}

// ZoomAt adjusts the scale by delta steps while keeping the canvas location
// under the screen-space point center visually fixed.
func (e *Engine) ZoomAt(delta float64, center geom.Point) {
	if !e.cfg.EnableZoom {
		return
	}

	oldScale := e.tf.Scale
	newScale := e.clampScale(oldScale + delta*e.cfg.ScaleStep)
	if newScale == oldScale {
		return
	}

	// Express the zoom center in the same space the pan lives in, then move
	// the pan so the point under the cursor stays put.
	ratio := newScale / oldScale
	rel := center.Sub(e.origin).Sub(e.center())
	e.tf.PanX = rel.X - (rel.X-e.tf.PanX)*ratio
	e.tf.PanY = rel.Y - (rel.Y-e.tf.PanY)*ratio
	e.tf.Scale = newScale
}

// Pan shifts the viewport by (dx, dy). Pan distance is unbounded; content may
// be moved arbitrarily far off screen. No-op when panning is disabled.
func (e *Engine) Pan(dx, dy float64) {
	if !e.cfg.EnablePan {
		return
	}
	e.tf.PanX += dx
	e.tf.PanY += dy
}

// Rotate adds delta radians to the rotation. No-op when rotation is disabled.
func (e *Engine) Rotate(delta float64) {
	if !e.cfg.EnableRotation {
		return
	}
	e.tf.Rotation += delta
}

// SetRotation sets the rotation directly, bypassing the EnableRotation gate.
func (e *Engine) SetRotation(value float64) {
	e.tf.Rotation = value
}

// Reset restores the identity transform.
func (e *Engine) Reset() {
	e.tf = Transform{Scale: 1}
}

// ScreenToCanvas inverse-maps a screen coordinate to a canvas-logical
// coordinate under the current transform. It is the exact mathematical
// inverse of CanvasToScreen for the same transform snapshot.
func (e *Engine) ScreenToCanvas(p geom.Point) geom.Point {
	c := e.center()
	q := p.Sub(e.origin).Sub(c)
	q.X -= e.tf.PanX
	q.Y -= e.tf.PanY
	q = q.Scale(1 / e.tf.Scale)
	q = q.Rotate(-e.tf.Rotation)
	return q.Add(c)
}

// CanvasToScreen forward-maps a canvas-logical coordinate to a screen
// coordinate under the current transform.
func (e *Engine) CanvasToScreen(p geom.Point) geom.Point {
	c := e.center()
	q := p.Sub(c)
	q = q.Rotate(e.tf.Rotation)
	q = q.Scale(e.tf.Scale)
	q.X += e.tf.PanX
	q.Y += e.tf.PanY
	return q.Add(c).Add(e.origin)
}

func (e *Engine) center() geom.Point {
	return geom.Point{X: e.size.Width / 2, Y: e.size.Height / 2}
}

func (e *Engine) clampScale(v float64) float64 {
	return math.Min(math.Max(v, e.cfg.MinScale), e.cfg.MaxScale)
}
