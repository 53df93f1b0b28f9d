package engine

import (
	"github.com/amberpipeline/amberpipeline/backend-go/internal/document"
	"github.com/amberpipeline/amberpipeline/backend-go/internal/geom"
)

// BuildWorldTransforms computes the world transform of every skeleton point,
// parents before children. Root point coordinates are canvas coordinates;
// child coordinates are relative to their parent. Interpolated poses override
// the document's rest pose for the points they name.
func BuildWorldTransforms(doc *document.RigDocument, poses []document.PointPose) map[string]geom.Matrix {
	overrides := make(map[string]document.PointPose, len(poses))
	for _, pp := range poses {
		overrides[pp.ID] = pp
	}

	world := make(map[string]geom.Matrix, len(doc.Points))
	for _, rootID := range doc.Roots() {
		buildSubtree(doc, rootID, geom.Identity(), overrides, world)
	}
	return world
}

func buildSubtree(doc *document.RigDocument, id string, parent geom.Matrix, overrides map[string]document.PointPose, world map[string]geom.Matrix) {
	pt, ok := doc.Points[id]
	if !ok {
		return
	}

	x, y, r, s := pt.X, pt.Y, pt.Rotation, pt.Scale
	if ov, ok := overrides[id]; ok {
		x, y, r, s = ov.X, ov.Y, ov.Rotation, ov.Scale
	}

	local := geom.FromPose(x, y, r, s)
	m := parent.Multiply(local)
	world[id] = m

	for _, childID := range pt.Children {
		buildSubtree(doc, childID, m, overrides, world)
	}
}

// WorldPositions reduces world transforms to point positions, used by
// renderers that only draw joints and bones.
func WorldPositions(world map[string]geom.Matrix) map[string]geom.Point {
	out := make(map[string]geom.Point, len(world))
	for id, m := range world {
		out[id] = m.Apply(geom.Point{})
	}
	return out
}
