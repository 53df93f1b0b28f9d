package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func forestDoc() *RigDocument {
	return &RigDocument{
		Points: map[string]SkeletonPoint{
			"root":  {ID: "root", Children: []string{"hip"}},
			"hip":   {ID: "hip", Parent: strptr("root"), Children: []string{"knee"}},
			"knee":  {ID: "knee", Parent: strptr("hip")},
			"root2": {ID: "root2"},
		},
	}
}

func TestValidateForest_OK(t *testing.T) {
	doc := forestDoc()
	require.NoError(t, doc.ValidateForest())
}

func TestValidateForest_MissingParent(t *testing.T) {
	doc := forestDoc()
	doc.Points["orphan"] = SkeletonPoint{ID: "orphan", Parent: strptr("gone")}

	err := doc.ValidateForest()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPointNotFound)
}

func TestValidateForest_Cycle(t *testing.T) {
	doc := forestDoc()
	root := doc.Points["root"]
	root.Parent = strptr("knee")
	doc.Points["root"] = root

	err := doc.ValidateForest()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestWouldCycle(t *testing.T) {
	doc := forestDoc()

	assert.True(t, doc.WouldCycle("hip", "knee"), "reparenting under a descendant")
	assert.True(t, doc.WouldCycle("hip", "hip"), "reparenting under itself")
	assert.False(t, doc.WouldCycle("knee", "root2"), "moving to the other tree")
	assert.False(t, doc.WouldCycle("root2", "knee"))
}

func TestRoots(t *testing.T) {
	doc := forestDoc()
	roots := doc.Roots()
	assert.ElementsMatch(t, []string{"root", "root2"}, roots)
}

func TestAnimation_InsertKeyframeKeepsOrder(t *testing.T) {
	var a Animation
	a.InsertKeyframe(Keyframe{ID: "b", Time: 1})
	a.InsertKeyframe(Keyframe{ID: "a", Time: 0})
	a.InsertKeyframe(Keyframe{ID: "c", Time: 2})
	a.InsertKeyframe(Keyframe{ID: "mid", Time: 0.5})

	var ids []string
	for _, kf := range a.Keyframes {
		ids = append(ids, kf.ID)
	}
	assert.Equal(t, []string{"a", "mid", "b", "c"}, ids)
}

func TestAnimation_RemoveKeyframe(t *testing.T) {
	var a Animation
	a.InsertKeyframe(Keyframe{ID: "a", Time: 0})
	a.InsertKeyframe(Keyframe{ID: "b", Time: 1})

	assert.True(t, a.RemoveKeyframe("a"))
	assert.False(t, a.RemoveKeyframe("a"))
	require.Len(t, a.Keyframes, 1)
	assert.Equal(t, "b", a.Keyframes[0].ID)
}

func TestNewEmptyDocument(t *testing.T) {
	doc := NewEmptyDocument("proj_x", "Test", "pt_root", "anim_1")

	require.NoError(t, doc.ValidateForest())
	require.Len(t, doc.Points, 1)
	assert.Nil(t, doc.Points["pt_root"].Parent)
	require.Contains(t, doc.Animations, "anim_1")
	assert.Equal(t, 24.0, doc.Animations["anim_1"].FPS)
}
