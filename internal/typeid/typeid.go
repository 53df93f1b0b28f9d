package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser      = "user"
	PrefixProject   = "proj"
	PrefixSnapshot  = "snap"
	PrefixOp        = "op"
	PrefixPoint     = "pt"
	PrefixPart      = "part"
	PrefixAnimation = "anim"
	PrefixKeyframe  = "kf"
	PrefixAsset     = "asset"
	PrefixTask      = "task"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string      { return New(PrefixUser) }
func NewProjectID() string   { return New(PrefixProject) }
func NewSnapshotID() string  { return New(PrefixSnapshot) }
func NewOpID() string        { return New(PrefixOp) }
func NewPointID() string     { return New(PrefixPoint) }
func NewPartID() string      { return New(PrefixPart) }
func NewAnimationID() string { return New(PrefixAnimation) }
func NewKeyframeID() string  { return New(PrefixKeyframe) }
func NewAssetID() string     { return New(PrefixAsset) }
func NewTaskID() string      { return New(PrefixTask) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
