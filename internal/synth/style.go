package synth

import (
	"strings"

	"figmagen/internal/assets"
	"figmagen/internal/types"
)

type prop struct {
	key string
	val string
}

// style is an inline React style object. Values are JS expressions; order is
// kept so generated code is stable between runs.
type style []prop

func (s *style) px(key string, v float64) {
	*s = append(*s, prop{key: key, val: num(v)})
}

func (s *style) str(key, v string) {
	*s = append(*s, prop{key: key, val: jsString(v)})
}

func (s *style) raw(key, expr string) {
	*s = append(*s, prop{key: key, val: expr})
}

func (s style) jsx() string {
	if len(s) == 0 {
		return "{{}}"
	}
	parts := make([]string, 0, len(s))
	for _, p := range s {
		parts = append(parts, p.key+": "+p.val)
	}
	return "{{" + strings.Join(parts, ", ") + "}}"
}

// layout positions n inside parent according to its constraints. Nodes
// without bounding boxes get no positioning.
func layout(n, parent *types.Node) style {
	var s style
	b := n.AbsoluteBoundingBox
	if b == nil {
		return s
	}
	if parent == nil || parent.AbsoluteBoundingBox == nil {
		s.str("position", "relative")
		s.px("width", b.Width)
		s.px("height", b.Height)
		return s
	}
	p := parent.AbsoluteBoundingBox
	s.str("position", "absolute")

	horizontal, vertical := "LEFT", "TOP"
	if n.Constraints != nil {
		if n.Constraints.Horizontal != "" {
			horizontal = n.Constraints.Horizontal
		}
		if n.Constraints.Vertical != "" {
			vertical = n.Constraints.Vertical
		}
	}

	left := b.X - p.X
	right := (p.X + p.Width) - (b.X + b.Width)
	switch horizontal {
	case "RIGHT":
		s.px("right", right)
		s.px("width", b.Width)
	case "LEFT_RIGHT":
		s.px("left", left)
		s.px("right", right)
	case "CENTER":
		s.str("left", "50%")
		s.px("marginLeft", (b.X+b.Width/2)-(p.X+p.Width/2)-b.Width/2)
		s.px("width", b.Width)
	case "SCALE":
		if p.Width > 0 {
			s.str("left", num(left/p.Width*100)+"%")
			s.str("width", num(b.Width/p.Width*100)+"%")
		}
	default:
		s.px("left", left)
		s.px("width", b.Width)
	}

	top := b.Y - p.Y
	bottom := (p.Y + p.Height) - (b.Y + b.Height)
	switch vertical {
	case "BOTTOM":
		s.px("bottom", bottom)
		s.px("height", b.Height)
	case "TOP_BOTTOM":
		s.px("top", top)
		s.px("bottom", bottom)
	case "CENTER":
		s.str("top", "50%")
		s.px("marginTop", (b.Y+b.Height/2)-(p.Y+p.Height/2)-b.Height/2)
		s.px("height", b.Height)
	case "SCALE":
		if p.Height > 0 {
			s.str("top", num(top/p.Height*100)+"%")
			s.str("height", num(b.Height/p.Height*100)+"%")
		}
	default:
		s.px("top", top)
		s.px("height", b.Height)
	}
	return s
}

// appearance adds fill, opacity, radius and text styling.
func appearance(s style, n *types.Node, imgs assets.Map) style {
	if n.Opacity != nil && *n.Opacity < 1 {
		s.px("opacity", *n.Opacity)
	}
	if n.CornerRadius > 0 {
		s.px("borderRadius", n.CornerRadius)
	}
	fill, ok := lastVisiblePaint(n.Fills)
	if n.Type == types.NodeText {
		if ok && fill.Type == types.PaintSolid {
			s.str("color", paintColor(fill))
		}
		if st := n.Style; st != nil {
			if st.FontFamily != "" {
				s.str("fontFamily", st.FontFamily)
			}
			if st.FontWeight > 0 {
				s.px("fontWeight", st.FontWeight)
			}
			if st.FontSize > 0 {
				s.px("fontSize", st.FontSize)
			}
			if align := textAlign(st.TextAlignHorizontal); align != "" {
				s.str("textAlign", align)
			}
			if st.LetterSpacing != 0 {
				s.px("letterSpacing", st.LetterSpacing)
			}
			if st.LineHeightPx > 0 {
				s.px("lineHeight", st.LineHeightPx)
			}
		}
		return s
	}
	if !ok {
		return s
	}
	switch fill.Type {
	case types.PaintSolid:
		s.str("backgroundColor", paintColor(fill))
	case types.PaintImage:
		if a, found := imgs[fill.ImageRef]; found {
			s.raw("backgroundImage", "`url(${require("+jsString(assetRef(a))+")})`")
			s.str("backgroundSize", "cover")
		}
	}
	return s
}

func lastVisiblePaint(paints []types.Paint) (types.Paint, bool) {
	for i := len(paints) - 1; i >= 0; i-- {
		if paints[i].IsVisible() {
			return paints[i], true
		}
	}
	return types.Paint{}, false
}

// paintColor folds the paint opacity into the color alpha.
func paintColor(p types.Paint) string {
	if p.Color == nil {
		return ColorString(nil)
	}
	c := *p.Color
	if p.Opacity != nil {
		c.A *= *p.Opacity
	}
	return ColorString(&c)
}

func textAlign(v string) string {
	switch v {
	case "LEFT":
		return "left"
	case "CENTER":
		return "center"
	case "RIGHT":
		return "right"
	case "JUSTIFIED":
		return "justify"
	}
	return ""
}

// assetRef is the asset path relative to src/, where the registry lives.
func assetRef(a assets.Asset) string {
	return "./" + strings.TrimPrefix(a.Path(), "src/")
}
