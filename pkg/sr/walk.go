package sr

import "fmt"

// WalkFunc visits a node with its path from the root; returning false skips the
// node's children
type WalkFunc func(n *Node, path string, depth int) bool

// Walk visits the root's descendants depth first, in document order. The root itself
// is not visited. Paths read like "ContentSequence[0].ContentSequence[3]".
func (n *Node) Walk(fn WalkFunc) {
	walk(n, "", 0, fn)
}

func walk(n *Node, prefix string, depth int, fn WalkFunc) {
	for i, child := range n.Children {
		path := ChildPath(prefix, i)
		if fn(child, path, depth+1) {
			walk(child, path, depth+1, fn)
		}
	}
}

// ChildPath extends a path with a Content Sequence index
func ChildPath(prefix string, i int) string {
	if prefix == "" {
		return fmt.Sprintf("ContentSequence[%d]", i)
	}
	return fmt.Sprintf("%s.ContentSequence[%d]", prefix, i)
}

// Find returns the first descendant matching pred, depth first
func (n *Node) Find(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(c *Node, _ string, _ int) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindNamed returns the first descendant whose concept name matches c
func (n *Node) FindNamed(c Code) *Node {
	return n.Find(func(x *Node) bool { return x.Named(c) })
}

// HasReference reports whether any descendant is an IMAGE, COMPOSITE or WAVEFORM item
func (n *Node) HasReference() bool {
	return n.Find(func(x *Node) bool { return x.ValueType.IsReference() }) != nil
}

// AllReferences returns every SOP reference in the subtree in document order
func (n *Node) AllReferences() []SOPRef {
	var refs []SOPRef
	n.Walk(func(c *Node, _ string, _ int) bool {
		refs = append(refs, c.References...)
		return true
	})
	return refs
}

// Child returns the first direct child named c
func (n *Node) Child(c Code) *Node {
	for _, child := range n.Children {
		if child.Named(c) {
			return child
		}
	}
	return nil
}

// ChildrenNamed returns the direct children named c
func (n *Node) ChildrenNamed(c Code) []*Node {
	var out []*Node
	for _, child := range n.Children {
		if child.Named(c) {
			out = append(out, child)
		}
	}
	return out
}
