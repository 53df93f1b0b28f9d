package engine

import (
	"encoding/json"
	"fmt"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

// Engine is the synchronous authoring engine embedded in the frontend. The
// host drives it from its frame loop: commands mutate state, Tick advances
// the playhead, queries return render-ready JSON.
type Engine struct {
	doc    *document.RigDocument
	animID string

	// Playback state
	playhead float64
	playing  bool
}

// NewEngine creates an engine with no document loaded.
func NewEngine() *Engine {
	return &Engine{}
}

// --- Commands (frontend -> engine) ---

// LoadDocument loads a document from JSON and resets playback.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.RigDocument
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return err
	}
	if err := doc.ValidateForest(); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	e.doc = &doc
	e.animID = ""
	if len(doc.Project.Animations) > 0 {
		e.animID = doc.Project.Animations[0]
	}
	e.playhead = 0
	e.playing = false
	return nil
}

// UpdateDocument reloads the document while preserving playback state. Used
// when the document changes during editing (e.g. keyframe recording).
func (e *Engine) UpdateDocument(jsonData string) error {
	var doc document.RigDocument
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return err
	}
	if err := doc.ValidateForest(); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	e.doc = &doc
	if _, ok := doc.Animations[e.animID]; !ok {
		e.animID = ""
		if len(doc.Project.Animations) > 0 {
			e.animID = doc.Project.Animations[0]
		}
	}
	if anim, ok := doc.Animations[e.animID]; ok && e.playhead > anim.Duration {
		e.playhead = anim.Duration
	}
	return nil
}

// SetAnimation selects the active animation and rewinds.
func (e *Engine) SetAnimation(animID string) error {
	if e.doc == nil {
		return fmt.Errorf("no document loaded")
	}
	if _, ok := e.doc.Animations[animID]; !ok {
		return fmt.Errorf("animation not found: %s", animID)
	}
	e.animID = animID
	e.playhead = 0
	return nil
}

// SetPlayhead moves the playhead, clamped to [0, duration].
func (e *Engine) SetPlayhead(t float64) {
	if t < 0 {
		t = 0
	}
	if anim := e.currentAnimation(); anim != nil && t > anim.Duration {
		t = anim.Duration
	}
	e.playhead = t
}

// Play starts playback.
func (e *Engine) Play() { e.playing = true }

// Pause stops playback.
func (e *Engine) Pause() { e.playing = false }

// TogglePlay toggles play/pause state.
func (e *Engine) TogglePlay() { e.playing = !e.playing }

// Tick advances the playhead by dt seconds if playing, wrapping or stopping
// at the animation's end, and returns the current pose as JSON. The host
// calls this once per animation frame with the elapsed wall-clock time.
func (e *Engine) Tick(dt float64) string {
	anim := e.currentAnimation()
	if anim == nil {
		return "[]"
	}

	if e.playing {
		e.playhead += dt
		if e.playhead >= anim.Duration {
			if anim.Loop && anim.Duration > 0 {
				for e.playhead >= anim.Duration {
					e.playhead -= anim.Duration
				}
			} else {
				e.playhead = anim.Duration
				e.playing = false
			}
		}
	}

	return e.CurrentPoseJSON()
}

// --- Queries (frontend <- engine) ---

// CurrentPose returns the interpolated pose at the playhead.
func (e *Engine) CurrentPose() []document.PointPose {
	anim := e.currentAnimation()
	if anim == nil {
		return nil
	}
	return InterpolatePose(anim, e.playhead)
}

// CurrentPoseJSON returns the interpolated pose at the playhead as JSON.
func (e *Engine) CurrentPoseJSON() string {
	pose := e.CurrentPose()
	if pose == nil {
		return "[]"
	}
	data, _ := json.Marshal(pose)
	return string(data)
}

// WorldTransformsJSON returns the skeleton's world transforms at the playhead
// as JSON, keyed by point ID, each value a [a,b,c,d,e,f] affine matrix.
func (e *Engine) WorldTransformsJSON() string {
	if e.doc == nil {
		return "{}"
	}
	world := BuildWorldTransforms(e.doc, e.CurrentPose())

	out := make(map[string][]float64, len(world))
	for id, m := range world {
		out[id] = m.ToSlice()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// Playhead returns the current playback position in seconds.
func (e *Engine) Playhead() float64 { return e.playhead }

// IsPlaying reports whether playback is active.
func (e *Engine) IsPlaying() bool { return e.playing }

// AnimationID returns the active animation's ID.
func (e *Engine) AnimationID() string { return e.animID }

// Document returns the loaded document, or nil.
func (e *Engine) Document() *document.RigDocument { return e.doc }

func (e *Engine) currentAnimation() *document.Animation {
	if e.doc == nil {
		return nil
	}
	anim, ok := e.doc.Animations[e.animID]
	if !ok {
		return nil
	}
	return &anim
}
