package synth

import (
	"fmt"
	"strings"

	"figmagen/internal/assets"
	"figmagen/internal/types"
)

// generator emits one render class per component node. Layers whose name
// starts with '#' become components of their own and are referenced from the
// enclosing class by their wrapper.
type generator struct {
	imgs    assets.Map
	seen    map[string]bool
	entries []ComponentEntry
}

func (g *generator) component(n *types.Node) {
	if g.seen[n.ID] {
		return
	}
	g.seen[n.ID] = true
	idx := len(g.entries)
	g.entries = append(g.entries, ComponentEntry{
		NodeID:   n.ID,
		Name:     componentName(n),
		Instance: instanceName(n),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "export class %s extends PureComponent {\n", instanceName(n))
	b.WriteString("  render() {\n")
	b.WriteString("    return (\n")
	g.node(&b, n, nil, 3, true)
	b.WriteString("    );\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	g.entries[idx].Doc = b.String()
}

func (g *generator) node(b *strings.Builder, n, parent *types.Node, depth int, root bool) {
	indent := strings.Repeat("  ", depth)
	if !root && strings.HasPrefix(strings.TrimSpace(n.Name), "#") {
		g.component(n)
		fmt.Fprintf(b, "%s<div style=%s>\n", indent, layout(n, parent).jsx())
		fmt.Fprintf(b, "%s  <%s {...this.props} nodeId=%s />\n", indent, componentName(n), jsString(n.ID))
		fmt.Fprintf(b, "%s</div>\n", indent)
		return
	}

	s := appearance(layout(n, parent), n, g.imgs)
	attrs := fmt.Sprintf(" style=%s", s.jsx())
	if n.TransitionNodeID != "" {
		attrs += fmt.Sprintf(" onClick={() => this.props.onTransition && this.props.onTransition(%s)}", jsString(n.TransitionNodeID))
	}

	switch {
	case n.Type == types.NodeVector:
		if a, ok := g.imgs[n.ID]; ok {
			fmt.Fprintf(b, "%s<img alt=%s src={require(%s)}%s />\n", indent, jsString(n.Name), jsString(assetRef(a)), attrs)
			return
		}
		fmt.Fprintf(b, "%s<div%s />\n", indent, attrs)
	case n.Type == types.NodeText:
		fmt.Fprintf(b, "%s<div%s>{%s}</div>\n", indent, attrs, jsString(n.Characters))
	case len(n.Children) == 0:
		fmt.Fprintf(b, "%s<div%s />\n", indent, attrs)
	default:
		fmt.Fprintf(b, "%s<div%s>\n", indent, attrs)
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			g.node(b, c, n, depth+1, false)
		}
		fmt.Fprintf(b, "%s</div>\n", indent)
	}
}
