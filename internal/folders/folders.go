// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package folders builds the folder hierarchy shown next to search results.
//
// The tree is an arena of Node values indexed by display-form path; it
// holds no UI handles. An Index is built from scratch for every new set of
// original results and never patched, so folders from a previous search
// cannot leak into the next one.
package folders

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/pkg/types"
)

// noParent is the Parent of root nodes.
const noParent = -1

// Node is one folder in the tree.
type Node struct {
	ID int

	// Segment is the last path component; for roots it is the drive or
	// filesystem root in display form ("/", `C:\`).
	Segment string

	// Path is the display-normalized full path. It is the node's identity.
	Path string

	// Parent is the parent node ID, or -1 for roots.
	Parent int

	// Children maps child segment to child node ID. Treat as read-only.
	Children map[string]int

	// Direct counts results whose containing folder is this node.
	Direct int

	// Total counts results in this folder and all of its descendants.
	Total int
}

// IsRoot reports whether n is a filesystem root.
func (n Node) IsRoot() bool { return n.Parent == noParent }

// Builder creates indexes with a fixed normalizer and logger.
type Builder struct {
	Normalizer pathnorm.Normalizer
	Logger     *zerolog.Logger
}

// Index is an immutable folder tree.
type Index struct {
	norm     pathnorm.Normalizer
	nodes    []Node
	byPath   map[string]int
	roots    []int
	warnings []error
}

// Build creates an index using the host path conventions.
func Build(results []types.SearchResult) *Index {
	return Builder{Normalizer: pathnorm.Default()}.Build(results)
}

// Build creates a fresh index from results. Results whose path cannot be
// split into folder segments are skipped and recorded in Warnings.
func (b Builder) Build(results []types.SearchResult) *Index {
	log := logging.OrNop(b.Logger)
	idx := &Index{
		norm:   b.Normalizer,
		byPath: make(map[string]int),
	}

	for _, r := range results {
		folder, err := b.Normalizer.ContainingFolder(r.FilePath)
		if err != nil {
			idx.skip(log, err)
			continue
		}
		segs, err := b.Normalizer.Segments(folder)
		if err != nil {
			idx.skip(log, err)
			continue
		}
		leaf := idx.insert(segs)
		idx.nodes[leaf].Direct++
		for id := leaf; id != noParent; id = idx.nodes[id].Parent {
			idx.nodes[id].Total++
		}
	}
	return idx
}

func (idx *Index) skip(log zerolog.Logger, err error) {
	idx.warnings = append(idx.warnings, err)
	log.Warn().Err(err).Msg("skipping result in folder tree")
}

// insert walks segs from the root, creating nodes on demand, and returns
// the ID of the deepest node.
func (idx *Index) insert(segs []string) int {
	parent := noParent
	for i := range segs {
		path := idx.norm.Join(segs[:i+1])
		if id, ok := idx.byPath[path]; ok {
			parent = id
			continue
		}
		id := len(idx.nodes)
		idx.nodes = append(idx.nodes, Node{
			ID:       id,
			Segment:  segs[i],
			Path:     path,
			Parent:   parent,
			Children: make(map[string]int),
		})
		idx.byPath[path] = id
		if parent == noParent {
			idx.roots = append(idx.roots, id)
		} else {
			idx.nodes[parent].Children[segs[i]] = id
		}
		parent = id
	}
	return parent
}

// Select returns the node whose full path equals path after display
// normalization. There is no fuzzy matching.
func (idx *Index) Select(path string) (Node, bool) {
	id, ok := idx.byPath[idx.norm.ForDisplay(path)]
	if !ok {
		return Node{}, false
	}
	return idx.nodes[id], true
}

// Node returns the node with the given ID.
func (idx *Index) Node(id int) (Node, bool) {
	if id < 0 || id >= len(idx.nodes) {
		return Node{}, false
	}
	return idx.nodes[id], true
}

// Roots returns the root nodes sorted by segment.
func (idx *Index) Roots() []Node {
	return idx.sorted(idx.roots)
}

// Children returns the children of n sorted by segment.
func (idx *Index) Children(n Node) []Node {
	ids := make([]int, 0, len(n.Children))
	for _, id := range n.Children {
		ids = append(ids, id)
	}
	return idx.sorted(ids)
}

func (idx *Index) sorted(ids []int) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = idx.nodes[id]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// Len returns the number of folder nodes.
func (idx *Index) Len() int { return len(idx.nodes) }

// Paths returns every folder path in the tree, sorted.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.byPath))
	for p := range idx.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Warnings returns the malformed-path errors met while building.
func (idx *Index) Warnings() []error { return idx.warnings }

// Rollup turns direct per-folder counts (as produced by the result
// pipeline) into counts that include every descendant folder.
func (idx *Index) Rollup(direct map[string]int) map[string]int {
	out := make(map[string]int, len(direct))
	for folder, n := range direct {
		segs, err := idx.norm.Segments(folder)
		if err != nil {
			continue
		}
		for i := range segs {
			out[idx.norm.Join(segs[:i+1])] += n
		}
	}
	return out
}
