package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename_FourSegments(t *testing.T) {
	info := ParseFilename("CHR_hero_battle_v01.png")

	assert.Equal(t, "CHR", info.Prefix)
	assert.Equal(t, "hero", info.MaterialName)
	assert.Equal(t, "battle", info.Attribute)
	assert.Equal(t, "v01", info.Version)
	assert.Equal(t, ".png", info.Ext)
}

func TestParseFilename_NoVersion(t *testing.T) {
	info := ParseFilename("UI_icon_sword_large.png")

	assert.Equal(t, "UI", info.Prefix)
	assert.Equal(t, "icon", info.MaterialName)
	assert.Equal(t, "sword_large", info.Attribute)
	assert.Empty(t, info.Version)
}

func TestParseFilename_MinimalName(t *testing.T) {
	info := ParseFilename("CHR.png")

	assert.Equal(t, "CHR", info.Prefix)
	assert.Empty(t, info.MaterialName)
	assert.Empty(t, info.Attribute)
}

func TestParseFilename_TextureSuffix(t *testing.T) {
	info := ParseFilename("ENV_rock_wall_N.png")
	assert.Equal(t, "_N", info.TextureSuffix)

	info = ParseFilename("ENV_rock_wall_BC.png")
	assert.Equal(t, "_BC", info.TextureSuffix)
}

func TestResolve_KnownPrefixes(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		filename     string
		resourceType string
		processes    []string
	}{
		{"CHR_hero_v01.png", "Character", []string{ProcSegment, ProcAlignBottom, ProcGenerateShadow}},
		{"UI_icon_v01.png", "Icon", []string{ProcSegment, ProcResizeSquare, ProcSharpen}},
		{"ENV_rock_v01.png", "Environment", []string{ProcMakeSeamless, ProcGenPBR, ProcGenLOD}},
		{"PRP_barrel_v01.png", "Prop", []string{ProcSegment, ProcGenPBR, ProcBoxCollision}},
	}
	for _, tt := range tests {
		res := r.Resolve(tt.filename)
		assert.Equal(t, tt.resourceType, res.ResourceType, tt.filename)
		assert.Equal(t, tt.processes, res.Processes, tt.filename)
	}
}

func TestResolve_UnknownPrefixFallsBack(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve("XYZ_something.png")
	assert.Equal(t, "Unknown", res.ResourceType)
	assert.Equal(t, []string{ProcDefault}, res.Processes)
}

func TestResolver_CustomRulesOverride(t *testing.T) {
	r := NewResolver(map[string]Rule{
		"CHR": {Processes: []string{ProcSegment}, Icon: "SimpleCharacter"},
		"FX":  {Processes: []string{ProcGenLOD}, Icon: "Effect"},
	})

	res := r.Resolve("CHR_hero_v01.png")
	assert.Equal(t, "SimpleCharacter", res.ResourceType)
	assert.Equal(t, []string{ProcSegment}, res.Processes)

	res = r.Resolve("FX_burst_v02.png")
	assert.Equal(t, "Effect", res.ResourceType)
}

func TestResolver_AddAndRemoveRule(t *testing.T) {
	r := NewResolver(nil)

	r.AddRule("SFX", []string{ProcResizeSquare}, "")
	res := r.Resolve("SFX_boom.png")
	assert.Equal(t, "Custom", res.ResourceType)

	r.RemoveRule("SFX")
	res = r.Resolve("SFX_boom.png")
	assert.Equal(t, "Unknown", res.ResourceType)
}

func TestNewResolverFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	rules := `
VFX:
  processes: [segment, gen_lod]
  icon: Effect
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o644))

	r, err := NewResolverFromFile(path)
	require.NoError(t, err)

	res := r.Resolve("VFX_spark_v01.png")
	assert.Equal(t, "Effect", res.ResourceType)
	assert.Equal(t, []string{ProcSegment, ProcGenLOD}, res.Processes)

	// Defaults survive merging
	assert.Equal(t, "Character", r.Resolve("CHR_hero.png").ResourceType)
}

func TestNewResolverFromFile_EmptyPath(t *testing.T) {
	r, err := NewResolverFromFile("")
	require.NoError(t, err)
	assert.Len(t, r.AllRules(), 4)
}

func TestNewResolverFromFile_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := NewResolverFromFile(path)
	assert.Error(t, err)
}
