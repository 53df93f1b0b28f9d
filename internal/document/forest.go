package document

import (
	"errors"
	"fmt"
)

var (
	ErrPointNotFound = errors.New("skeleton point not found")
	ErrCycle         = errors.New("skeleton parent chain contains a cycle")
)

// ValidateForest checks the skeleton's parent/child structure: every parent
// reference must resolve, and no parent chain may contain a cycle.
func (d *RigDocument) ValidateForest() error {
	for id, pt := range d.Points {
		if pt.Parent == nil {
			continue
		}
		if _, ok := d.Points[*pt.Parent]; !ok {
			return fmt.Errorf("point %s: parent %s: %w", id, *pt.Parent, ErrPointNotFound)
		}
		if err := d.walkToRoot(id); err != nil {
			return err
		}
	}
	return nil
}

// walkToRoot follows parent links from the given point; a chain longer than
// the point count means a cycle.
func (d *RigDocument) walkToRoot(id string) error {
	steps := 0
	cur := id
	for {
		pt, ok := d.Points[cur]
		if !ok || pt.Parent == nil {
			return nil
		}
		cur = *pt.Parent
		steps++
		if steps > len(d.Points) {
			return fmt.Errorf("point %s: %w", id, ErrCycle)
		}
	}
}

// WouldCycle reports whether reparenting pointID under newParentID would
// create a cycle (newParentID is pointID itself or one of its descendants).
func (d *RigDocument) WouldCycle(pointID, newParentID string) bool {
	cur := newParentID
	steps := 0
	for cur != "" {
		if cur == pointID {
			return true
		}
		pt, ok := d.Points[cur]
		if !ok || pt.Parent == nil {
			return false
		}
		cur = *pt.Parent
		steps++
		if steps > len(d.Points) {
			return true
		}
	}
	return false
}

// Roots returns the IDs of all points without a parent.
func (d *RigDocument) Roots() []string {
	var roots []string
	for id, pt := range d.Points {
		if pt.Parent == nil {
			roots = append(roots, id)
		}
	}
	return roots
}
