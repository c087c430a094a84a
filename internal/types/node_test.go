package types

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestNodeUnmarshalToleratesMissingType(t *testing.T) {
	// hidden layers are dropped before anything reads their type
	var n Node
	raw := `{"id":"1:1","type":"FRAME","children":[{"id":"1:2","visible":false}]}`
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(n.Children) != 1 || n.Children[0].Type != "" || n.Children[0].IsVisible() {
		t.Fatalf("children: %+v", n.Children)
	}
}

func TestNodeUnmarshalKeepsUnknownType(t *testing.T) {
	var n Node
	if err := json.Unmarshal([]byte(`{"id":"1","type":"WIDGET","visible":false}`), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Type != "WIDGET" || n.Type.Known() {
		t.Fatalf("type: got=%q known=%v", n.Type, n.Type.Known())
	}
	if n.IsVisible() {
		t.Fatalf("visible=false must be honoured")
	}
	if n.Children != nil {
		t.Fatalf("absent children must stay nil")
	}
}

func TestNodeTypeClassification(t *testing.T) {
	for _, typ := range []NodeType{NodeVector, NodeLine, NodeRegularPolygon, NodeEllipse, NodeStar} {
		if !typ.IsVectorLike() {
			t.Fatalf("%s should be vector-like", typ)
		}
	}
	for _, typ := range []NodeType{NodeFrame, NodeRectangle, NodeText, NodeBooleanOp, "WIDGET"} {
		if typ.IsVectorLike() {
			t.Fatalf("%s should not be vector-like", typ)
		}
	}
	if !NodeFrame.IsFrame() || NodeGroup.IsFrame() {
		t.Fatalf("frame classification wrong")
	}
}

func TestNodeWalkAndFind(t *testing.T) {
	root := &Node{ID: "a", Type: NodeFrame, Children: []*Node{
		{ID: "b", Type: NodeGroup, Children: []*Node{{ID: "c", Type: NodeText}}},
		{ID: "d", Type: NodeVector},
	}}
	if got, want := root.IDs(), []string{"a", "b", "c", "d"}; !slices.Equal(got, want) {
		t.Fatalf("ids: got=%v want=%v", got, want)
	}
	n, ok := root.Find("c")
	if !ok || n.Type != NodeText {
		t.Fatalf("find c: %v %v", n, ok)
	}
	if _, ok := root.Find("zz"); ok {
		t.Fatalf("unexpected hit")
	}
}
