package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/geom"
)

func strptr(s string) *string { return &s }

func rigDoc() *document.RigDocument {
	return &document.RigDocument{
		Points: map[string]document.SkeletonPoint{
			"root": {ID: "root", X: 100, Y: 100, Scale: 1, Children: []string{"arm"}},
			"arm":  {ID: "arm", X: 50, Y: 0, Scale: 1, Parent: strptr("root"), Children: []string{"hand"}},
			"hand": {ID: "hand", X: 30, Y: 0, Scale: 1, Parent: strptr("arm")},
		},
	}
}

func TestBuildWorldTransforms_RestPose(t *testing.T) {
	doc := rigDoc()
	world := BuildWorldTransforms(doc, nil)
	require.Len(t, world, 3)

	pos := WorldPositions(world)
	assert.InDelta(t, 100, pos["root"].X, 1e-9)
	assert.InDelta(t, 150, pos["arm"].X, 1e-9)
	assert.InDelta(t, 180, pos["hand"].X, 1e-9)
	assert.InDelta(t, 100, pos["hand"].Y, 1e-9)
}

func TestBuildWorldTransforms_ParentRotationCarriesChildren(t *testing.T) {
	doc := rigDoc()

	// Rotate the arm a quarter turn: the hand swings below it.
	override := []document.PointPose{
		{ID: "arm", X: 50, Y: 0, Rotation: math.Pi / 2, Scale: 1},
	}
	world := BuildWorldTransforms(doc, override)
	pos := WorldPositions(world)

	assert.InDelta(t, 150, pos["arm"].X, 1e-9)
	assert.InDelta(t, 150, pos["hand"].X, 1e-9)
	assert.InDelta(t, 130, pos["hand"].Y, 1e-9)
}

func TestBuildWorldTransforms_ScalePropagates(t *testing.T) {
	doc := rigDoc()

	override := []document.PointPose{
		{ID: "root", X: 100, Y: 100, Rotation: 0, Scale: 2},
	}
	world := BuildWorldTransforms(doc, override)
	pos := WorldPositions(world)

	assert.InDelta(t, 200, pos["arm"].X, 1e-9)
	assert.InDelta(t, 260, pos["hand"].X, 1e-9)
}

func TestBuildWorldTransforms_IgnoresUnknownChild(t *testing.T) {
	doc := rigDoc()
	root := doc.Points["root"]
	root.Children = append(root.Children, "missing")
	doc.Points["root"] = root

	world := BuildWorldTransforms(doc, nil)
	assert.Len(t, world, 3)
	_, ok := world["missing"]
	assert.False(t, ok)
}

func TestWorldPositions(t *testing.T) {
	world := map[string]geom.Matrix{
		"a": geom.Translate(5, 7),
	}
	pos := WorldPositions(world)
	assert.Equal(t, geom.Point{X: 5, Y: 7}, pos["a"])
}
