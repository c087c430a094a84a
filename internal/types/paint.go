package types

// PaintType tags a fill or stroke layer.
type PaintType string

const (
	PaintSolid           PaintType = "SOLID"
	PaintImage           PaintType = "IMAGE"
	PaintEmoji           PaintType = "EMOJI"
	PaintGradientLinear  PaintType = "GRADIENT_LINEAR"
	PaintGradientRadial  PaintType = "GRADIENT_RADIAL"
	PaintGradientAngular PaintType = "GRADIENT_ANGULAR"
	PaintGradientDiamond PaintType = "GRADIENT_DIAMOND"
	PaintVideo           PaintType = "VIDEO"
)

func (t PaintType) Known() bool {
	switch t {
	case PaintSolid, PaintImage, PaintEmoji, PaintGradientLinear, PaintGradientRadial,
		PaintGradientAngular, PaintGradientDiamond, PaintVideo:
		return true
	default:
		return false
	}
}

// Paint is one fill or stroke layer.
type Paint struct {
	Type     PaintType `json:"type"`
	Visible  *bool     `json:"visible,omitempty"`
	Opacity  *float64  `json:"opacity,omitempty"`
	Color    *Color    `json:"color,omitempty"`
	ImageRef string    `json:"imageRef,omitempty"`
}

func (p Paint) IsVisible() bool {
	return p.Visible == nil || *p.Visible
}

// Blend modes that need no special compositing.
const (
	BlendPassThrough = "PASS_THROUGH"
	BlendNormal      = "NORMAL"
)
