package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
)

// DocumentState holds the authoritative rig document for a room.
type DocumentState struct {
	mu        sync.RWMutex
	doc       *document.RigDocument
	serverSeq int64
	opLog     []Operation
}

func NewDocumentState(doc *document.RigDocument) *DocumentState {
	return &DocumentState{
		doc:   doc,
		opLog: make([]Operation, 0),
	}
}

// GetDocument returns the current document. Callers must not mutate it.
func (ds *DocumentState) GetDocument() *document.RigDocument {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.doc
}

// ServerSeq returns the sequence number of the last applied operation.
func (ds *DocumentState) ServerSeq() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq
}

// ApplyOperation applies an operation and returns the new server sequence.
func (ds *DocumentState) ApplyOperation(op Operation) (int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := ds.applyOperationLocked(op); err != nil {
		return 0, err
	}

	ds.serverSeq++
	ds.opLog = append(ds.opLog, op)

	return ds.serverSeq, nil
}

func (ds *DocumentState) applyOperationLocked(op Operation) error {
	switch op.Type {
	case OpPointAdd:
		return ds.applyPointAdd(op)
	case OpPointMove:
		return ds.applyPointMove(op)
	case OpPointReparent:
		return ds.applyPointReparent(op)
	case OpPointDelete:
		return ds.applyPointDelete(op)
	case OpKeyframeAdd:
		return ds.applyKeyframeAdd(op)
	case OpKeyframeRemove:
		return ds.applyKeyframeRemove(op)
	case OpAnimationUpdate:
		return ds.applyAnimationUpdate(op)
	case OpPartUpdate:
		return ds.applyPartUpdate(op)
	case OpProjectRename:
		return ds.applyProjectRename(op)
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func (ds *DocumentState) applyPointAdd(op Operation) error {
	var pt document.SkeletonPoint
	if err := json.Unmarshal(op.Point, &pt); err != nil {
		return fmt.Errorf("invalid point: %w", err)
	}
	if pt.ID == "" {
		return fmt.Errorf("point id is required")
	}
	if _, exists := ds.doc.Points[pt.ID]; exists {
		return fmt.Errorf("point already exists: %s", pt.ID)
	}
	if pt.Parent != nil {
		parent, ok := ds.doc.Points[*pt.Parent]
		if !ok {
			return fmt.Errorf("parent not found: %s", *pt.Parent)
		}
		parent.Children = append(parent.Children, pt.ID)
		ds.doc.Points[*pt.Parent] = parent
	}
	pt.Children = nil
	ds.doc.Points[pt.ID] = pt
	return nil
}

func (ds *DocumentState) applyPointMove(op Operation) error {
	pt, ok := ds.doc.Points[op.PointID]
	if !ok {
		return fmt.Errorf("point not found: %s", op.PointID)
	}

	var changes map[string]float64
	if err := json.Unmarshal(op.Move, &changes); err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	if v, ok := changes["x"]; ok {
		pt.X = v
	}
	if v, ok := changes["y"]; ok {
		pt.Y = v
	}
	if v, ok := changes["rotation"]; ok {
		pt.Rotation = v
	}
	if v, ok := changes["scale"]; ok {
		pt.Scale = v
	}

	ds.doc.Points[op.PointID] = pt
	return nil
}

func (ds *DocumentState) applyPointReparent(op Operation) error {
	pt, ok := ds.doc.Points[op.PointID]
	if !ok {
		return fmt.Errorf("point not found: %s", op.PointID)
	}

	if op.NewParentID != nil {
		if _, ok := ds.doc.Points[*op.NewParentID]; !ok {
			return fmt.Errorf("new parent not found: %s", *op.NewParentID)
		}
		if ds.doc.WouldCycle(op.PointID, *op.NewParentID) {
			return fmt.Errorf("reparent %s under %s: %w", op.PointID, *op.NewParentID, document.ErrCycle)
		}
	}

	// Detach from old parent
	if pt.Parent != nil {
		oldParent, ok := ds.doc.Points[*pt.Parent]
		if ok {
			oldParent.Children = removeID(oldParent.Children, op.PointID)
			ds.doc.Points[*pt.Parent] = oldParent
		}
	}

	if op.NewParentID != nil {
		newParent := ds.doc.Points[*op.NewParentID]
		newParent.Children = append(newParent.Children, op.PointID)
		ds.doc.Points[*op.NewParentID] = newParent
	}

	pt.Parent = op.NewParentID
	ds.doc.Points[op.PointID] = pt
	return nil
}

func (ds *DocumentState) applyPointDelete(op Operation) error {
	pt, ok := ds.doc.Points[op.PointID]
	if !ok {
		return fmt.Errorf("point not found: %s", op.PointID)
	}

	// Children of the deleted point become roots.
	for _, childID := range pt.Children {
		child, ok := ds.doc.Points[childID]
		if !ok {
			continue
		}
		child.Parent = nil
		ds.doc.Points[childID] = child
	}

	if pt.Parent != nil {
		parent, ok := ds.doc.Points[*pt.Parent]
		if ok {
			parent.Children = removeID(parent.Children, op.PointID)
			ds.doc.Points[*pt.Parent] = parent
		}
	}

	delete(ds.doc.Points, op.PointID)

	// Drop the point from keyframe poses and part weights.
	for animID, anim := range ds.doc.Animations {
		for i := range anim.Keyframes {
			anim.Keyframes[i].Pose = removePose(anim.Keyframes[i].Pose, op.PointID)
		}
		ds.doc.Animations[animID] = anim
	}
	for partID, part := range ds.doc.Parts {
		delete(part.Weights, op.PointID)
		ds.doc.Parts[partID] = part
	}

	return nil
}

func (ds *DocumentState) applyKeyframeAdd(op Operation) error {
	anim, ok := ds.doc.Animations[op.AnimationID]
	if !ok {
		return fmt.Errorf("animation not found: %s", op.AnimationID)
	}

	var kf document.Keyframe
	if err := json.Unmarshal(op.Keyframe, &kf); err != nil {
		return fmt.Errorf("invalid keyframe: %w", err)
	}
	if kf.Time < 0 {
		return fmt.Errorf("keyframe time must be >= 0")
	}
	for _, p := range kf.Pose {
		if _, ok := ds.doc.Points[p.ID]; !ok {
			return fmt.Errorf("pose references unknown point: %s", p.ID)
		}
	}
	if kf.Interpolation == "" {
		kf.Interpolation = document.InterpolationLinear
	}

	anim.InsertKeyframe(kf)
	ds.doc.Animations[op.AnimationID] = anim
	return nil
}

func (ds *DocumentState) applyKeyframeRemove(op Operation) error {
	anim, ok := ds.doc.Animations[op.AnimationID]
	if !ok {
		return fmt.Errorf("animation not found: %s", op.AnimationID)
	}
	if !anim.RemoveKeyframe(op.KeyframeID) {
		return fmt.Errorf("keyframe not found: %s", op.KeyframeID)
	}
	ds.doc.Animations[op.AnimationID] = anim
	return nil
}

func (ds *DocumentState) applyAnimationUpdate(op Operation) error {
	anim, ok := ds.doc.Animations[op.AnimationID]
	if !ok {
		return fmt.Errorf("animation not found: %s", op.AnimationID)
	}

	var changes map[string]interface{}
	if err := json.Unmarshal(op.Changes, &changes); err != nil {
		return fmt.Errorf("invalid animation changes: %w", err)
	}

	if v, ok := changes["name"].(string); ok {
		anim.Name = v
	}
	if v, ok := changes["duration"].(float64); ok && v > 0 {
		anim.Duration = v
	}
	if v, ok := changes["fps"].(float64); ok && v > 0 {
		anim.FPS = v
	}
	if v, ok := changes["loop"].(bool); ok {
		anim.Loop = v
	}

	ds.doc.Animations[op.AnimationID] = anim
	return nil
}

func (ds *DocumentState) applyPartUpdate(op Operation) error {
	part, ok := ds.doc.Parts[op.PartID]
	if !ok {
		return fmt.Errorf("part not found: %s", op.PartID)
	}

	var changes struct {
		Name    *string            `json:"name"`
		Label   *string            `json:"label"`
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.Unmarshal(op.Changes, &changes); err != nil {
		return fmt.Errorf("invalid part changes: %w", err)
	}

	if changes.Name != nil {
		part.Name = *changes.Name
	}
	if changes.Label != nil {
		label := document.PartLabel(*changes.Label)
		if label != document.LabelForeground && label != document.LabelBackground {
			return fmt.Errorf("invalid part label: %s", *changes.Label)
		}
		part.Label = label
	}
	if changes.Weights != nil {
		for pointID := range changes.Weights {
			if _, ok := ds.doc.Points[pointID]; !ok {
				return fmt.Errorf("weight references unknown point: %s", pointID)
			}
		}
		part.Weights = changes.Weights
	}

	ds.doc.Parts[op.PartID] = part
	return nil
}

func (ds *DocumentState) applyProjectRename(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("name is required")
	}
	ds.doc.Project.Name = op.Name
	return nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removePose(pose []document.PointPose, pointID string) []document.PointPose {
	out := make([]document.PointPose, 0, len(pose))
	for _, p := range pose {
		if p.ID != pointID {
			out = append(out, p)
		}
	}
	return out
}

// GetServerTimestamp returns the current server timestamp in milliseconds.
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
