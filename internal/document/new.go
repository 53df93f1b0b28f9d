package document

// NewEmptyDocument creates the starting document for a new project: a single
// root skeleton point at the canvas center and one empty animation.
func NewEmptyDocument(projectID, projectName, rootPointID, animationID string) *RigDocument {
	return &RigDocument{
		Project: Project{
			ID:         projectID,
			Name:       projectName,
			Version:    1,
			Width:      1024,
			Height:     1024,
			Animations: []string{animationID},
		},
		Points: map[string]SkeletonPoint{
			rootPointID: {
				ID:       rootPointID,
				X:        512,
				Y:        512,
				Rotation: 0,
				Scale:    1,
				Parent:   nil,
				Children: []string{},
			},
		},
		Parts: map[string]Part{},
		Animations: map[string]Animation{
			animationID: {
				ID:        animationID,
				Name:      "Animation 1",
				Keyframes: []Keyframe{},
				Duration:  2,
				FPS:       24,
				Loop:      true,
			},
		},
		Assets: map[string]Asset{},
	}
}
