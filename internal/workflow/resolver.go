// Package workflow implements the asset pipeline: a directory watcher that
// picks up sorted artwork, resolves the processing flow from the four-segment
// naming convention, and runs the raster steps for each file.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule maps a filename prefix to the processing flow it triggers.
type Rule struct {
	Processes []string `yaml:"processes" json:"processes"`
	Icon      string   `yaml:"icon" json:"icon"`
}

// TextureInfo describes a recognized texture suffix.
type TextureInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EngineUsage string `json:"engineUsage"`
}

// FileInfo is the parsed four-segment filename:
// PREFIX_material_variant_version.ext
type FileInfo struct {
	FullName       string `json:"fullName"`
	NameWithoutExt string `json:"nameWithoutExt"`
	Ext            string `json:"ext"`
	Prefix         string `json:"prefix"`
	MaterialName   string `json:"materialName"`
	Attribute      string `json:"attribute"`
	Version        string `json:"version"`
	TextureSuffix  string `json:"textureSuffix"`
}

// Resolution is the resolved processing plan for one file.
type Resolution struct {
	FileInfo
	ResourceType string      `json:"resourceType"`
	Processes    []string    `json:"processes"`
	TextureInfo  TextureInfo `json:"textureInfo"`
}

// Process step names understood by the manager's executor.
const (
	ProcSegment        = "segment"
	ProcAlignBottom    = "align_bottom"
	ProcGenerateShadow = "generate_shadow"
	ProcResizeSquare   = "resize_square"
	ProcSharpen        = "sharpen"
	ProcMakeSeamless   = "make_seamless"
	ProcGenPBR         = "gen_pbr"
	ProcGenLOD         = "gen_lod"
	ProcBoxCollision   = "box_collision"
	ProcDefault        = "default_process"
)

func defaultRules() map[string]Rule {
	return map[string]Rule{
		"CHR": {Processes: []string{ProcSegment, ProcAlignBottom, ProcGenerateShadow}, Icon: "Character"},
		"UI":  {Processes: []string{ProcSegment, ProcResizeSquare, ProcSharpen}, Icon: "Icon"},
		"ENV": {Processes: []string{ProcMakeSeamless, ProcGenPBR, ProcGenLOD}, Icon: "Environment"},
		"PRP": {Processes: []string{ProcSegment, ProcGenPBR, ProcBoxCollision}, Icon: "Prop"},
	}
}

var textureSuffixes = map[string]TextureInfo{
	"_BC": {Name: "Base Color", Description: "Diffuse", EngineUsage: "Base color of objects"},
	"_N":  {Name: "Normal", Description: "Normal", EngineUsage: "Bump texture and details"},
	"_R":  {Name: "Roughness", Description: "Roughness", EngineUsage: "Determines whether reflected light is scattered or concentrated"},
	"_E":  {Name: "Emissive", Description: "Emissive", EngineUsage: "Glowing parts like amber, torches, etc."},
	"_M":  {Name: "Mask", Description: "Mask", EngineUsage: "Used to implement dynamic effects like blood stains, snow, etc."},
}

// Resolver maps filenames to processing flows. Custom rules override the
// built-in prefix rules.
type Resolver struct {
	rules map[string]Rule
}

func NewResolver(customRules map[string]Rule) *Resolver {
	rules := defaultRules()
	for prefix, rule := range customRules {
		rules[prefix] = rule
	}
	return &Resolver{rules: rules}
}

// NewResolverFromFile loads custom rules from a YAML file. An empty path
// yields the default rules.
func NewResolverFromFile(path string) (*Resolver, error) {
	if path == "" {
		return NewResolver(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var custom map[string]Rule
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	return NewResolver(custom), nil
}

// ParseFilename splits a filename into the four-segment naming structure.
// Missing segments stay empty; the version segment must look like v01 or v2.
func ParseFilename(filename string) FileInfo {
	ext := strings.ToLower(filepath.Ext(filename))
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	parts := strings.Split(nameWithoutExt, "_")

	info := FileInfo{
		FullName:       filename,
		NameWithoutExt: nameWithoutExt,
		Ext:            ext,
	}
	if len(parts) > 0 {
		info.Prefix = parts[0]
	}
	if len(parts) > 1 {
		info.MaterialName = parts[1]
	}
	if len(parts) > 2 {
		last := parts[len(parts)-1]
		if isVersion(last) {
			info.Version = last
			info.Attribute = strings.Join(parts[2:len(parts)-1], "_")
		} else {
			info.Attribute = strings.Join(parts[2:], "_")
		}
	}

	for suffix := range textureSuffixes {
		if strings.HasSuffix(nameWithoutExt, suffix) {
			info.TextureSuffix = suffix
			break
		}
	}

	return info
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Resolve returns the processing plan for a filename. Unknown prefixes fall
// back to the default flow.
func (r *Resolver) Resolve(filename string) Resolution {
	info := ParseFilename(filename)

	rule, ok := r.rules[info.Prefix]
	if !ok {
		rule = Rule{Processes: []string{ProcDefault}, Icon: "Unknown"}
	}

	return Resolution{
		FileInfo:     info,
		ResourceType: rule.Icon,
		Processes:    rule.Processes,
		TextureInfo:  textureSuffixes[info.TextureSuffix],
	}
}

// AddRule registers or replaces a prefix rule.
func (r *Resolver) AddRule(prefix string, processes []string, icon string) {
	if icon == "" {
		icon = "Custom"
	}
	r.rules[prefix] = Rule{Processes: processes, Icon: icon}
}

// RemoveRule deletes a prefix rule.
func (r *Resolver) RemoveRule(prefix string) {
	delete(r.rules, prefix)
}

// AllRules returns a copy of the active rule set.
func (r *Resolver) AllRules() map[string]Rule {
	out := make(map[string]Rule, len(r.rules))
	for k, v := range r.rules {
		out[k] = v
	}
	return out
}
