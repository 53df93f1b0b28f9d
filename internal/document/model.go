package document

import (
	"encoding/json"
	"sort"
)

// RigDocument is the full authoring state of one character: the source
// artwork, its decomposed parts, the skeleton forest, and keyframe animations.
type RigDocument struct {
	Project    Project                  `json:"project"`
	Points     map[string]SkeletonPoint `json:"points"`
	Parts      map[string]Part          `json:"parts"`
	Animations map[string]Animation     `json:"animations"`
	Assets     map[string]Asset         `json:"assets"`
}

type Project struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Version    int      `json:"version"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
	SourceID   string   `json:"sourceId"` // asset holding the original artwork
	Animations []string `json:"animations"`
}

// SkeletonPoint is one joint of the character skeleton. Points form a forest:
// each point has at most one parent, root points have Parent == nil, and the
// parent/child graph never contains a cycle.
type SkeletonPoint struct {
	ID       string   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Rotation float64  `json:"rotation"`
	Scale    float64  `json:"scale"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children"`
}

// PartLabel tags a decomposed part as character foreground or background.
type PartLabel string

const (
	LabelForeground PartLabel = "foreground"
	LabelBackground PartLabel = "background"
)

// Part is one decomposed body part: a mask over the source artwork plus the
// bone weights binding it to skeleton points.
type Part struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	MaskAssetID string             `json:"maskAssetId"`
	Label       PartLabel          `json:"label"`
	Weights     map[string]float64 `json:"weights"` // pointID -> weight
}

// Interpolation selects how a keyframe blends into its successor.
type Interpolation string

const (
	InterpolationLinear Interpolation = "linear"
	InterpolationStep   Interpolation = "step"
)

// PointPose is the captured transform of a single skeleton point.
type PointPose struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// Keyframe captures the pose of the skeleton at one point in time.
// Pose entries reference SkeletonPoint IDs that existed at capture time.
type Keyframe struct {
	ID            string        `json:"id"`
	Time          float64       `json:"time"` // seconds, >= 0
	Pose          []PointPose   `json:"pose"`
	Interpolation Interpolation `json:"interpolation"`
}

// Animation is an ordered keyframe sequence. Keyframes are kept sorted by
// time ascending; they are inserted in order and never reordered afterwards.
type Animation struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Keyframes []Keyframe `json:"keyframes"`
	Duration  float64    `json:"duration"`
	FPS       float64    `json:"fps"`
	Loop      bool       `json:"loop"`
}

// InsertKeyframe adds a keyframe at its sorted position by time.
func (a *Animation) InsertKeyframe(kf Keyframe) {
	i := sort.Search(len(a.Keyframes), func(i int) bool {
		return a.Keyframes[i].Time > kf.Time
	})
	a.Keyframes = append(a.Keyframes, Keyframe{})
	copy(a.Keyframes[i+1:], a.Keyframes[i:])
	a.Keyframes[i] = kf
}

// RemoveKeyframe deletes the keyframe with the given ID, if present.
func (a *Animation) RemoveKeyframe(keyframeID string) bool {
	for i, kf := range a.Keyframes {
		if kf.ID == keyframeID {
			a.Keyframes = append(a.Keyframes[:i], a.Keyframes[i+1:]...)
			return true
		}
	}
	return false
}

type Asset struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	URL    string          `json:"url"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Meta   json.RawMessage `json:"meta"`
}
