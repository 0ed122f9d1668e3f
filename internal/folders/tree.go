// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package folders

// TreeNode is a value snapshot of the folder tree for rendering or
// serialization.
type TreeNode struct {
	Segment  string      `json:"segment" yaml:"segment"`
	Path     string      `json:"path" yaml:"path"`
	Direct   int         `json:"direct" yaml:"direct"`
	Total    int         `json:"total" yaml:"total"`
	Children []*TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree returns a snapshot rooted at a virtual node with an empty segment
// whose children are the filesystem roots.
func (idx *Index) Tree() *TreeNode {
	root := &TreeNode{}
	for _, r := range idx.Roots() {
		child := idx.snapshot(r)
		root.Total += child.Total
		root.Children = append(root.Children, child)
	}
	return root
}

func (idx *Index) snapshot(n Node) *TreeNode {
	t := &TreeNode{
		Segment: n.Segment,
		Path:    n.Path,
		Direct:  n.Direct,
		Total:   n.Total,
	}
	for _, c := range idx.Children(n) {
		t.Children = append(t.Children, idx.snapshot(c))
	}
	return t
}

// Walk visits every node depth first in display order. depth is 0 for
// filesystem roots. Returning false from fn skips that node's children.
func (t *TreeNode) Walk(fn func(n *TreeNode, depth int) bool) {
	for _, c := range t.Children {
		c.walk(fn, 0)
	}
}

func (t *TreeNode) walk(fn func(n *TreeNode, depth int) bool, depth int) {
	if !fn(t, depth) {
		return
	}
	for _, c := range t.Children {
		c.walk(fn, depth+1)
	}
}
