// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pathnorm canonicalizes file-system and archive-member paths.
//
// Two forms exist. The index form (ForIndex) is the identity used for
// deduplication and cache keys: forward slashes, lower-case drive letter.
// The display form (ForDisplay) is what the user sees and what folder
// grouping is built from: backslashes and an upper-case drive on Windows,
// forward slashes elsewhere.
//
// Archive members are written "archive::member". The archive part is
// normalized like any other path (recursively, so nested archives work);
// the member part only gets forward slashes.
//
// Every function here is total: bad input degrades to a best-effort string
// transform, never an error or a panic. Both forms are idempotent.
package pathnorm

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ArchiveSep separates an archive path from the member path inside it.
const ArchiveSep = "::"

// Style selects the display conventions.
type Style int

const (
	StylePOSIX Style = iota
	StyleWindows
)

// Separator returns the display separator for the style.
func (s Style) Separator() string {
	if s == StyleWindows {
		return `\`
	}
	return "/"
}

func (s Style) String() string {
	if s == StyleWindows {
		return "windows"
	}
	return "posix"
}

// HostStyle returns the style of the running platform.
func HostStyle() Style {
	if runtime.GOOS == "windows" {
		return StyleWindows
	}
	return StylePOSIX
}

// Normalizer holds the conventions used to normalize paths.
type Normalizer struct {
	Style Style

	// Resolve maps a relative path that exists on disk to an absolute one.
	// It reports false when the path should be left alone. Nil disables
	// disk access entirely.
	Resolve func(path string) (string, bool)
}

// Default returns a normalizer for the host platform that resolves
// existing relative paths against the working directory.
func Default() Normalizer {
	return Normalizer{Style: HostStyle(), Resolve: ResolveOnDisk}
}

// Lexical returns a normalizer that never touches the disk.
func Lexical(style Style) Normalizer {
	return Normalizer{Style: style}
}

// ResolveOnDisk makes an existing relative path absolute.
func ResolveOnDisk(p string) (string, bool) {
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) {
		return "", false
	}
	if _, err := os.Stat(native); err != nil {
		return "", false
	}
	abs, err := filepath.Abs(native)
	if err != nil {
		return "", false
	}
	return abs, true
}

var std = Default()

// ForIndex normalizes p to index form using the host conventions.
func ForIndex(p string) string { return std.ForIndex(p) }

// ForDisplay normalizes p to display form using the host conventions.
func ForDisplay(p string) string { return std.ForDisplay(p) }

// ContainingFolder returns the display-form folder of p using the host
// conventions.
func ContainingFolder(p string) (string, error) { return std.ContainingFolder(p) }

// Within reports whether folder equals scope or lies below it, using the
// host conventions.
func Within(folder, scope string) bool { return std.Within(folder, scope) }

// ForIndex returns the canonical identity of p.
func (n Normalizer) ForIndex(p string) string {
	if p == "" {
		return ""
	}
	if archive, member, ok := splitArchive(p); ok {
		return n.ForIndex(archive) + ArchiveSep + normalizeMember(member)
	}
	return n.resolve(p).format(formIndex, n.Style)
}

// ForDisplay returns p the way the user should see it.
func (n Normalizer) ForDisplay(p string) string {
	if p == "" {
		return ""
	}
	if archive, member, ok := splitArchive(p); ok {
		return n.ForDisplay(archive) + ArchiveSep + normalizeMember(member)
	}
	return n.resolve(p).format(formDisplay, n.Style)
}

// resolve cleans p, makes it absolute when it exists on disk, and cleans
// the result again. Cleaning first keeps the disk check stable under
// repeated normalization.
func (n Normalizer) resolve(p string) parsed {
	pp := parse(norm.NFC.String(p))
	if pp.root != "" || n.Resolve == nil {
		return pp
	}
	abs, ok := n.Resolve(pp.format(formIndex, n.Style))
	if !ok {
		return pp
	}
	return parse(norm.NFC.String(abs))
}

// splitArchive splits at the last archive separator so that the archive
// part can itself be an archive member.
func splitArchive(p string) (archive, member string, ok bool) {
	i := strings.LastIndex(p, ArchiveSep)
	if i <= 0 {
		return "", "", false
	}
	return p[:i], p[i+len(ArchiveSep):], true
}

// outerArchive returns the on-disk archive file of a (possibly nested)
// archive member path.
func outerArchive(p string) (string, bool) {
	i := strings.Index(p, ArchiveSep)
	if i <= 0 {
		return "", false
	}
	return p[:i], true
}

// normalizeMember uses forward slashes and drops leading slashes and
// colons. A leading colon would move the separator found by splitArchive
// on the next pass.
func normalizeMember(m string) string {
	m = norm.NFC.String(strings.ReplaceAll(m, `\`, "/"))
	return strings.TrimLeft(m, "/:")
}

type form int

const (
	formIndex form = iota
	formDisplay
)

// parsed is a lexically cleaned path: a root ("" for relative paths,
// "/" for POSIX roots, "c:" for drives, "//host/share" for UNC) plus
// the remaining components.
type parsed struct {
	root  string
	drive bool
	parts []string
}

func parse(p string) parsed {
	s := strings.ReplaceAll(p, `\`, "/")
	var pp parsed

	switch {
	case len(s) >= 2 && s[1] == ':' && isLetter(s[0]) && (len(s) == 2 || s[2] == '/'):
		pp.root = strings.ToLower(s[:2])
		pp.drive = true
		s = s[2:]
	case strings.HasPrefix(s, "//") && !strings.HasPrefix(s, "///"):
		rest := strings.Split(strings.TrimPrefix(s, "//"), "/")
		n := 0
		var host []string
		for n < len(rest) && len(host) < 2 {
			if rest[n] != "" {
				host = append(host, rest[n])
			}
			n++
		}
		pp.root = "//" + strings.Join(host, "/")
		s = strings.Join(rest[n:], "/")
	case strings.HasPrefix(s, "/"):
		pp.root = "/"
	}

	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
		case "..":
			switch {
			case len(pp.parts) > 0 && pp.parts[len(pp.parts)-1] != "..":
				pp.parts = pp.parts[:len(pp.parts)-1]
			case pp.root == "":
				pp.parts = append(pp.parts, part)
			}
		default:
			pp.parts = append(pp.parts, part)
		}
	}
	return pp
}

// isDrive reports whether s is a drive designator such as "C:".
func isDrive(s string) bool {
	return len(s) == 2 && s[1] == ':' && isLetter(s[0])
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// rootString renders the root in the requested form.
func (pp parsed) rootString(f form, style Style) string {
	sep := "/"
	if f == formDisplay {
		sep = style.Separator()
	}
	switch {
	case pp.root == "":
		return ""
	case pp.drive:
		drive := pp.root
		if f == formDisplay {
			drive = strings.ToUpper(drive)
		}
		return drive + sep
	case pp.root == "/":
		return sep
	default:
		return strings.ReplaceAll(pp.root, "/", sep)
	}
}

func (pp parsed) format(f form, style Style) string {
	sep := "/"
	if f == formDisplay {
		sep = style.Separator()
	}
	root := pp.rootString(f, style)
	body := strings.Join(pp.parts, sep)
	switch {
	case root == "" && body == "":
		return "."
	case root == "" && isDrive(pp.parts[0]):
		// "./C:" stays relative; bare "C:" would parse as a drive root.
		return "." + sep + body
	case root == "":
		return body
	case body == "":
		return root
	case strings.HasSuffix(root, sep):
		return root + body
	default:
		return root + sep + body
	}
}
