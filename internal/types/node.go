package types

import "errors"

// ErrMalformedNode reports a node missing a field the preprocessor relies on.
var ErrMalformedNode = errors.New("malformed node")

// NodeType tags a document node. The vocabulary is open: tags outside the
// documented set are kept verbatim and classified as "other".
type NodeType string

const (
	NodeDocument       NodeType = "DOCUMENT"
	NodeCanvas         NodeType = "CANVAS"
	NodeFrame          NodeType = "FRAME"
	NodeGroup          NodeType = "GROUP"
	NodeSection        NodeType = "SECTION"
	NodeComponent      NodeType = "COMPONENT"
	NodeComponentSet   NodeType = "COMPONENT_SET"
	NodeInstance       NodeType = "INSTANCE"
	NodeBooleanOp      NodeType = "BOOLEAN_OPERATION"
	NodeRectangle      NodeType = "RECTANGLE"
	NodeText           NodeType = "TEXT"
	NodeSlice          NodeType = "SLICE"
	NodeVector         NodeType = "VECTOR"
	NodeLine           NodeType = "LINE"
	NodeRegularPolygon NodeType = "REGULAR_POLYGON"
	NodeEllipse        NodeType = "ELLIPSE"
	NodeStar           NodeType = "STAR"
)

var knownNodeTypes = map[NodeType]struct{}{
	NodeDocument: {}, NodeCanvas: {}, NodeFrame: {}, NodeGroup: {}, NodeSection: {},
	NodeComponent: {}, NodeComponentSet: {}, NodeInstance: {}, NodeBooleanOp: {},
	NodeRectangle: {}, NodeText: {}, NodeSlice: {}, NodeVector: {}, NodeLine: {},
	NodeRegularPolygon: {}, NodeEllipse: {}, NodeStar: {},
}

// Known reports whether t belongs to the documented vocabulary.
func (t NodeType) Known() bool {
	_, ok := knownNodeTypes[t]
	return ok
}

// IsVectorLike reports whether t is one of the renderable primitive shapes
// that are exported as a single opaque asset.
func (t NodeType) IsVectorLike() bool {
	switch t {
	case NodeVector, NodeLine, NodeRegularPolygon, NodeEllipse, NodeStar:
		return true
	default:
		return false
	}
}

func (t NodeType) IsFrame() bool { return t == NodeFrame }

// Constraints anchors a node along each layout axis.
type Constraints struct {
	Vertical   string `json:"vertical"`
	Horizontal string `json:"horizontal"`
}

type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TypeStyle is the subset of text styling read by the synthesizer.
type TypeStyle struct {
	FontFamily          string  `json:"fontFamily,omitempty"`
	FontWeight          float64 `json:"fontWeight,omitempty"`
	FontSize            float64 `json:"fontSize,omitempty"`
	TextAlignHorizontal string  `json:"textAlignHorizontal,omitempty"`
	LetterSpacing       float64 `json:"letterSpacing,omitempty"`
	LineHeightPx        float64 `json:"lineHeightPx,omitempty"`
}

// Node is one element of the design document. Optional sequences use nil for
// "absent"; the preprocessor distinguishes an absent children list from an
// empty one.
type Node struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Type        NodeType     `json:"type"`
	Visible     *bool        `json:"visible,omitempty"`
	Fills       []Paint      `json:"fills,omitempty"`
	Strokes     []Paint      `json:"strokes,omitempty"`
	BlendMode   string       `json:"blendMode,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Children    []*Node      `json:"children,omitempty"`

	AbsoluteBoundingBox  *Rect      `json:"absoluteBoundingBox,omitempty"`
	BackgroundColor      *Color     `json:"backgroundColor,omitempty"`
	Opacity              *float64   `json:"opacity,omitempty"`
	CornerRadius         float64    `json:"cornerRadius,omitempty"`
	Characters           string     `json:"characters,omitempty"`
	Style                *TypeStyle `json:"style,omitempty"`
	TransitionNodeID     string     `json:"transitionNodeID,omitempty"`
	PrototypeStartNodeID string     `json:"prototypeStartNodeID,omitempty"`
}

// IsVisible treats an absent visible flag as true.
func (n *Node) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node in pre-order with the given id.
func (n *Node) Find(id string) (*Node, bool) {
	var found *Node
	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}
		if x.ID == id {
			found = x
			return false
		}
		return true
	})
	return found, found != nil
}

// IDs lists the ids of n and its descendants in pre-order.
func (n *Node) IDs() []string {
	var out []string
	n.Walk(func(x *Node) bool {
		out = append(out, x.ID)
		return true
	})
	return out
}

// Bool returns a pointer to v, for building nodes in code.
func Bool(v bool) *bool { return &v }
