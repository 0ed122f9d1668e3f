// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pathnorm

import (
	"fmt"
	"strings"
)

// MalformedPathError reports a result path that cannot be split into
// folder segments. Callers skip the entry from folder-derived views but
// keep it in the result list.
type MalformedPathError struct {
	Path   string
	Reason string
}

func (e *MalformedPathError) Error() string {
	return fmt.Sprintf("malformed path %q: %s", e.Path, e.Reason)
}

// ContainingFolder returns the display-form folder that groups p. For an
// archive member this is the folder holding the outermost archive file,
// not a pseudo-folder inside the archive.
func (n Normalizer) ContainingFolder(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", &MalformedPathError{Path: p, Reason: "empty path"}
	}
	file := n.ForDisplay(p)
	if outer, ok := outerArchive(file); ok {
		file = outer
	}
	pp := parse(file)
	if pp.root == "" {
		return "", &MalformedPathError{Path: p, Reason: "path has no root"}
	}
	if len(pp.parts) == 0 {
		return "", &MalformedPathError{Path: p, Reason: "path has no parent folder"}
	}
	pp.parts = pp.parts[:len(pp.parts)-1]
	return pp.format(formDisplay, n.Style), nil
}

// Segments splits a folder into its display-form root followed by one
// entry per folder name. Join(Segments(f)) == ForDisplay(f).
func (n Normalizer) Segments(folder string) ([]string, error) {
	if strings.TrimSpace(folder) == "" {
		return nil, &MalformedPathError{Path: folder, Reason: "empty path"}
	}
	pp := parse(n.ForDisplay(folder))
	if pp.root == "" {
		return nil, &MalformedPathError{Path: folder, Reason: "path has no root"}
	}
	segs := make([]string, 0, len(pp.parts)+1)
	segs = append(segs, pp.rootString(formDisplay, n.Style))
	return append(segs, pp.parts...), nil
}

// Join rebuilds a display-form folder from segments produced by Segments.
func (n Normalizer) Join(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	sep := n.Style.Separator()
	var b strings.Builder
	b.WriteString(segments[0])
	for _, s := range segments[1:] {
		if !strings.HasSuffix(b.String(), sep) {
			b.WriteString(sep)
		}
		b.WriteString(s)
	}
	return b.String()
}

// Within reports whether folder is scope or a descendant of scope. Both
// sides are display-normalized and compared on whole segments, so "/Foo2"
// is never inside "/Foo". Windows comparisons ignore case.
func (n Normalizer) Within(folder, scope string) bool {
	f := n.ForDisplay(folder)
	s := n.ForDisplay(scope)
	if f == "" || s == "" {
		return false
	}
	if n.Style == StyleWindows {
		f = strings.ToLower(f)
		s = strings.ToLower(s)
	}
	if f == s {
		return true
	}
	sep := n.Style.Separator()
	if !strings.HasSuffix(s, sep) {
		s += sep
	}
	return strings.HasPrefix(f, s)
}
