package preprocess

import "figmagen/internal/types"

// RequiresRender reports whether a fill or stroke list can only be exported
// as a rendered image: any visible emoji paint, or more than one visible
// layer. Invisible paints are ignored.
func RequiresRender(paints []types.Paint) bool {
	if paints == nil {
		return false
	}
	visible := 0
	for _, p := range paints {
		if !p.IsVisible() {
			continue
		}
		visible++
		if p.Type == types.PaintEmoji {
			return true
		}
	}
	return visible > 1
}

// BlendRequiresRender reports whether a blend mode needs compositing that
// cannot be expressed structurally.
func BlendRequiresRender(mode string) bool {
	switch mode {
	case "", types.BlendPassThrough, types.BlendNormal:
		return false
	default:
		return true
	}
}

func forceRender(n *types.Node) bool {
	return RequiresRender(n.Fills) || RequiresRender(n.Strokes) || BlendRequiresRender(n.BlendMode)
}
