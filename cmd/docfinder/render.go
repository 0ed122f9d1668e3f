// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/pdiddy/docfinder/internal/collapse"
	"github.com/pdiddy/docfinder/internal/filetype"
	"github.com/pdiddy/docfinder/internal/folders"
	"github.com/pdiddy/docfinder/pkg/types"
)

const (
	pathWidth    = 60
	excerptWidth = 100
	dateLayout   = "2006-01-02 15:04"
)

// shorten fits s into width terminal cells, keeping the end of the
// string, which for paths is the informative part.
func shorten(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	rs := []rune(s)
	w := 1
	i := len(rs)
	for i > 0 {
		cw := runewidth.RuneWidth(rs[i-1])
		if w+cw > width {
			break
		}
		w += cw
		i--
	}
	return "…" + string(rs[i:])
}

// oneLine collapses whitespace and truncates to width cells.
func oneLine(s string, width int) string {
	return runewidth.Truncate(strings.Join(strings.Fields(s), " "), width, "…")
}

// highlight marks the match span of r's paragraph with brackets.
func highlight(r types.SearchResult) string {
	p := r.Paragraph
	m := r.Match
	if m == nil || m.Start < 0 || m.End > len(p) || m.Start >= m.End {
		return p
	}
	return p[:m.Start] + "[" + p[m.Start:m.End] + "]" + p[m.End:]
}

func modifiedText(r types.SearchResult) string {
	if r.Modified == nil {
		return "-"
	}
	return r.Modified.Local().Format(dateLayout)
}

func sizeText(kb int64) string {
	if kb <= 0 {
		return "-"
	}
	if kb >= 1024 {
		return strconv.FormatFloat(float64(kb)/1024, 'f', 1, 64) + " MB"
	}
	return strconv.FormatInt(kb, 10) + " KB"
}

// renderTable prints one line per result with its excerpt below.
func renderTable(w io.Writer, results []types.SearchResult, display func(string) string) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "%4s  %5s  %-6s  %-16s  %8s  %s\n", "#", "Score", "Type", "Modified", "Size", "Path")
	fmt.Fprintln(w, strings.Repeat("-", 50+pathWidth))
	for i, r := range results {
		fmt.Fprintf(w, "%4d  %5.2f  %-6s  %-16s  %8s  %s\n",
			i+1, r.Score, filetype.Of(r.FilePath), modifiedText(r), sizeText(r.SizeKB),
			shorten(display(r.FilePath), pathWidth))
		if text := excerptText(r); text != "" {
			fmt.Fprintf(w, "%6s%s\n", "", oneLine(text, excerptWidth))
		}
	}
}

func excerptText(r types.SearchResult) string {
	text := highlight(r)
	if r.Heading != "" {
		if text == "" {
			return r.Heading
		}
		text = r.Heading + ": " + text
	}
	return text
}

// group is the results of one file in display order.
type group struct {
	path    string
	results []types.SearchResult
}

// groupByFile groups results by path, ordered by each path's first
// appearance.
func groupByFile(results []types.SearchResult) []group {
	var groups []group
	at := make(map[string]int)
	for _, r := range results {
		i, ok := at[r.FilePath]
		if !ok {
			i = len(groups)
			at[r.FilePath] = i
			groups = append(groups, group{path: r.FilePath})
		}
		groups[i].results = append(groups[i].results, r)
	}
	return groups
}

// renderGrouped prints results grouped by file. A collapsed file shows
// only its header; a collapsed chapter shows only its heading.
func renderGrouped(w io.Writer, results []types.SearchResult, state *collapse.Store, display func(string) string) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	for _, g := range groupByFile(results) {
		marker := "▾"
		collapsed := state.Get(collapse.FileKey(g.path))
		if collapsed {
			marker = "▸"
		}
		fmt.Fprintf(w, "%s %s (%d)\n", marker, display(g.path), len(g.results))
		if collapsed {
			continue
		}
		for i, r := range g.results {
			if r.Heading != "" && state.Get(collapse.ChapterKey(g.path, i, r.Heading)) {
				fmt.Fprintf(w, "    ▸ %s\n", oneLine(r.Heading, excerptWidth))
				continue
			}
			if r.Heading != "" {
				fmt.Fprintf(w, "    ▾ %s\n", oneLine(r.Heading, excerptWidth))
			}
			if text := highlight(r); text != "" {
				fmt.Fprintf(w, "      %s\n", oneLine(text, excerptWidth))
			}
			for _, line := range rowLines(r.Row) {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
}

// rowLines formats row fields as "column: value", sorted by column.
func rowLines(row map[string]string) []string {
	if len(row) == 0 {
		return nil
	}
	lines := make([]string, 0, len(row))
	for k, v := range row {
		lines = append(lines, oneLine(k+": "+v, excerptWidth))
	}
	slices.Sort(lines)
	return lines
}

// renderTree prints the folder tree with counts of type-matching results
// including subfolders. The active scope is marked with an asterisk.
func renderTree(w io.Writer, tree *folders.TreeNode, counts map[string]int, scope string) {
	if tree == nil || len(tree.Children) == 0 {
		return
	}
	tree.Walk(func(n *folders.TreeNode, depth int) bool {
		mark := " "
		if scope != "" && n.Path == scope {
			mark = "*"
		}
		fmt.Fprintf(w, "%s%s%s (%d)\n", mark, strings.Repeat("  ", depth), n.Segment, counts[n.Path])
		return true
	})
}
