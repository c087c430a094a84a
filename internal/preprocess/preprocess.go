// Package preprocess simplifies a design document tree before component
// synthesis.
//
// Every node is classified as either a structural container or a vector
// leaf. Nodes whose paints or blend mode cannot be expressed structurally are
// forced to VECTOR. A frame whose visible children are all vector shapes
// anchored by the same constraints collapses into one VECTOR leaf, so an icon
// built from several primitives exports as a single asset. Invisible children
// are dropped for good. Vector leaves lose their children and are recorded in
// a Registry in pre-order.
//
// The tree is rewritten in place.
package preprocess

import (
	"errors"
	"fmt"

	"figmagen/internal/types"
)

// MalformedNodeError identifies the node that broke classification.
type MalformedNodeError struct {
	NodeID   string
	ParentID string
	Reason   string
}

func (e *MalformedNodeError) Error() string {
	if e.ParentID != "" {
		return fmt.Sprintf("malformed node %q (child of %q): %s", e.NodeID, e.ParentID, e.Reason)
	}
	return fmt.Sprintf("malformed node %q: %s", e.NodeID, e.Reason)
}

func (e *MalformedNodeError) Unwrap() error { return types.ErrMalformedNode }

// IsMalformed reports whether err was caused by malformed input.
func IsMalformed(err error) bool {
	return errors.Is(err, types.ErrMalformedNode)
}

// Preprocess classifies node and its descendants, registering vector leaves
// in reg. It stops at the first malformed node; the tree may be partially
// rewritten at that point.
func Preprocess(node *types.Node, reg *Registry) error {
	if reg == nil {
		return errors.New("preprocess: registry is nil")
	}
	if node == nil {
		return &MalformedNodeError{Reason: "nil node"}
	}
	return preprocess(node, "", reg)
}

func preprocess(node *types.Node, parentID string, reg *Registry) error {
	if node.Type == "" {
		return &MalformedNodeError{NodeID: node.ID, ParentID: parentID, Reason: "missing type"}
	}

	if forceRender(node) {
		node.Type = types.NodeVector
	}

	if node.Children != nil {
		kept := make([]*types.Node, 0, len(node.Children))
		for _, c := range node.Children {
			if c == nil {
				return &MalformedNodeError{ParentID: node.ID, Reason: "nil child"}
			}
			if c.IsVisible() {
				kept = append(kept, c)
			}
		}
		node.Children = kept
	}

	// Frames and other containers alike qualify only through their retained
	// children; the collapse below also requires at least one of them.
	// Seeding this with type != FRAME, as earlier versions of this tool did,
	// makes a FRAME permanently ineligible and no frame ever collapses.
	vectorsOnly := true
	var vertical, horizontal *string
	for _, c := range node.Children {
		if !c.Type.IsVectorLike() {
			vectorsOnly = false
			continue
		}
		if c.Constraints == nil {
			return &MalformedNodeError{NodeID: c.ID, ParentID: node.ID, Reason: "vector child without constraints"}
		}
		if vertical != nil && c.Constraints.Vertical != *vertical {
			vectorsOnly = false
		}
		if horizontal != nil && c.Constraints.Horizontal != *horizontal {
			vectorsOnly = false
		}
		// last vector child wins; any mismatch above already ruled out the merge
		v, h := c.Constraints.Vertical, c.Constraints.Horizontal
		vertical, horizontal = &v, &h
	}

	if len(node.Children) > 0 && vectorsOnly {
		node.Type = types.NodeVector
		node.Constraints = &types.Constraints{Vertical: deref(vertical), Horizontal: deref(horizontal)}
	}

	if node.Type.IsVectorLike() {
		node.Type = types.NodeVector
		reg.add(node)
		node.Children = []*types.Node{}
	}

	for _, c := range node.Children {
		if err := preprocess(c, node.ID, reg); err != nil {
			return err
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
