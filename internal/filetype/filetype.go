// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filetype derives file-type tags from file names.
package filetype

import (
	"sort"
	"strings"
)

// Other is the tag for unknown or missing extensions.
const Other = "other"

// suffixes maps a lower-case extension suffix to its tag. Multi-part
// suffixes win over single ones because Of tries the longest match first.
var suffixes = map[string]string{
	".pdf":    "pdf",
	".doc":    "doc",
	".docx":   "docx",
	".xls":    "xls",
	".xlsx":   "xlsx",
	".ppt":    "ppt",
	".pptx":   "pptx",
	".odt":    "odt",
	".ods":    "ods",
	".odp":    "odp",
	".rtf":    "rtf",
	".txt":    "txt",
	".md":     "md",
	".csv":    "csv",
	".tsv":    "tsv",
	".json":   "json",
	".xml":    "xml",
	".yaml":   "yaml",
	".yml":    "yaml",
	".html":   "html",
	".htm":    "html",
	".epub":   "epub",
	".eml":    "eml",
	".msg":    "msg",
	".log":    "log",
	".zip":    "zip",
	".tar":    "tar",
	".tar.gz": "tar.gz",
	".tgz":    "tar.gz",
	".7z":     "7z",
	".rar":    "rar",
}

// textual lists the tags whose content can be read as plain text.
var textual = map[string]bool{
	"txt": true, "md": true, "csv": true, "tsv": true, "json": true,
	"xml": true, "yaml": true, "html": true, "log": true, "eml": true,
}

// tabular lists the textual tags parsed as rows.
var tabular = map[string]bool{"csv": true, "tsv": true}

// Of returns the tag for path: the longest known extension suffix,
// compared case-insensitively. For archive members only the member name
// counts.
func Of(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		path = path[i+2:]
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	name := strings.ToLower(path)

	// Try each dot from the left so ".tar.gz" beats ".gz".
	for i := 0; i < len(name); i++ {
		if name[i] != '.' || i == 0 {
			continue
		}
		if tag, ok := suffixes[name[i:]]; ok {
			return tag
		}
	}
	return Other
}

// Known returns every known tag, sorted.
func Known() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range suffixes {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// IsKnown reports whether tag is one of Known.
func IsKnown(tag string) bool {
	for _, t := range suffixes {
		if t == tag {
			return true
		}
	}
	return tag == Other
}

// Textual reports whether files with tag can be indexed as plain text.
func Textual(tag string) bool { return textual[tag] }

// Tabular reports whether files with tag hold delimited rows.
func Tabular(tag string) bool { return tabular[tag] }
