// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pathnorm

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	posix   = Lexical(StylePOSIX)
	windows = Lexical(StyleWindows)
)

func TestForIndex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain posix", "/A/b.pdf", "/A/b.pdf"},
		{"trailing separator stripped", "/A/B/", "/A/B"},
		{"posix root keeps separator", "/", "/"},
		{"dot segments cleaned", "/a//b/./c/../d", "/a/b/d"},
		{"windows path", `C:\Users\Bob\doc.txt`, "c:/Users/Bob/doc.txt"},
		{"windows root", `C:\`, "c:/"},
		{"bare drive", "D:", "d:/"},
		{"windows trailing separator", `C:\Data\`, "c:/Data"},
		{"unc share", `\\srv\share\docs\a.txt`, "//srv/share/docs/a.txt"},
		{"archive member", `C:\Data\x.zip::dir\inner.txt`, "c:/Data/x.zip::dir/inner.txt"},
		{"nested archive", `/a/x.zip::b.zip::c\d.txt`, "/a/x.zip::b.zip::c/d.txt"},
		{"archive member leading slash", "/a/x.zip::/m.txt", "/a/x.zip::m.txt"},
		{"decomposed unicode", "/cafe\u0301.txt", "/caf\u00e9.txt"},
		{"relative kept when missing", "nope/x.txt", "nope/x.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, posix.ForIndex(tt.in))
			// Index form does not depend on the display style.
			assert.Equal(t, tt.want, windows.ForIndex(tt.in))
		})
	}
}

func TestForDisplay(t *testing.T) {
	tests := []struct {
		name  string
		style Normalizer
		in    string
		want  string
	}{
		{"empty", windows, "", ""},
		{"windows upper drive", windows, "c:/users/x.txt", `C:\users\x.txt`},
		{"windows root", windows, "c:/", `C:\`},
		{"windows posix-rooted", windows, "/A/b", `\A\b`},
		{"windows unc", windows, "//srv/share/a", `\\srv\share\a`},
		{"windows archive", windows, "c:/d/x.zip::a\\b.txt", `C:\d\x.zip::a/b.txt`},
		{"posix plain", posix, "/A/b/", "/A/b"},
		{"posix drive path", posix, `c:\a`, "C:/a"},
		{"posix archive", posix, "/A/x.zip::in/y.txt", "/A/x.zip::in/y.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.style.ForDisplay(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"/",
		"//",
		".",
		"./",
		"../up/x",
		"/A/b.pdf",
		"/a//b/./c/../d/",
		`C:\`,
		"C:",
		`C:\Users\Bob\doc.txt`,
		`\\srv\share`,
		`\\srv\share\a\b`,
		`C:\Data\x.zip::dir\inner.txt`,
		"/a/x.zip::b.zip::c/d.txt",
		"/a/x.zip::",
		"/cafe\u0301/x",
		"relative/path/",
		"./C:",
		".//c:",
		`.\C:\x`,
		" a\u00e9:://:\\",
		"/a/x.zip:::b",
		"/a/x.zip::/:/:c",
	}
	for _, n := range []Normalizer{posix, windows} {
		for _, in := range inputs {
			once := n.ForIndex(in)
			assert.Equal(t, once, n.ForIndex(once), "ForIndex(%q) style %s", in, n.Style)

			disp := n.ForDisplay(in)
			assert.Equal(t, disp, n.ForDisplay(disp), "ForDisplay(%q) style %s", in, n.Style)
		}
	}
}

func TestRelativeDriveLikeComponentStaysRelative(t *testing.T) {
	assert.Equal(t, "./c:", posix.ForIndex(".//c:"))
	assert.Equal(t, "./C:", posix.ForIndex("./C:"))
	assert.Equal(t, `.\C:\x`, windows.ForDisplay("./C:/x"))
	assert.Equal(t, "c:/", posix.ForIndex("C:"))
}

func TestArchiveMemberLeadingColon(t *testing.T) {
	assert.Equal(t, " a\u00e9::", posix.ForIndex(" a\u00e9:://:\\"))
	assert.Equal(t, "/a/x.zip::c", posix.ForIndex("/a/x.zip::/:/:c"))
}

func TestForIndexResolvesExistingRelativePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX layout")
	}
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.txt"), []byte("x"), 0o644))
	t.Chdir(dir)

	want, err := filepath.Abs(filepath.Join("docs", "a.txt"))
	require.NoError(t, err)

	n := Normalizer{Style: StylePOSIX, Resolve: ResolveOnDisk}
	got := n.ForIndex("docs/./a.txt")
	assert.Equal(t, filepath.ToSlash(want), got)
	assert.Equal(t, got, n.ForIndex(got))

	assert.Equal(t, "docs/missing.txt", n.ForIndex("docs/missing.txt"))
}

func TestContainingFolder(t *testing.T) {
	tests := []struct {
		name    string
		n       Normalizer
		in      string
		want    string
		wantErr bool
	}{
		{"posix file", posix, "/A/x.pdf", "/A", false},
		{"posix file at root", posix, "/x.pdf", "/", false},
		{"archive member uses archive folder", posix, "/A/x.zip::inner/deep/y.txt", "/A", false},
		{"nested archive member", posix, "/A/B/x.zip::y.zip::z.txt", "/A/B", false},
		{"windows file", windows, "c:/A/x.pdf", `C:\A`, false},
		{"windows file at root", windows, `C:\x.pdf`, `C:\`, false},
		{"windows unc", windows, `\\srv\share\x.txt`, `\\srv\share`, false},
		{"relative", posix, "x.pdf", "", true},
		{"empty", posix, "", "", true},
		{"root only", posix, "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.n.ContainingFolder(tt.in)
			if tt.wantErr {
				var mpe *MalformedPathError
				require.True(t, errors.As(err, &mpe), "want MalformedPathError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name   string
		n      Normalizer
		folder string
		scope  string
		want   bool
	}{
		{"child", posix, "/Foo/bar", "/Foo", true},
		{"same folder", posix, "/Foo", "/Foo/", true},
		{"sibling with shared prefix", posix, "/Foo2", "/Foo", false},
		{"deep sibling with shared prefix", posix, "/Foo2/x", "/Foo", false},
		{"root scope", posix, "/Foo", "/", true},
		{"parent is not within child", posix, "/Foo", "/Foo/bar", false},
		{"empty scope", posix, "/Foo", "", false},
		{"windows case insensitive", windows, `C:\foo\bar`, "c:/FOO", true},
		{"windows shared prefix", windows, `C:\Foo2`, `C:\Foo`, false},
		{"windows drive root", windows, `C:\Foo`, `C:\`, true},
		{"windows other drive", windows, `D:\Foo`, `C:\`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.Within(tt.folder, tt.scope))
		})
	}
}

func TestSegmentsJoinRoundTrip(t *testing.T) {
	tests := []struct {
		n      Normalizer
		folder string
		want   []string
	}{
		{posix, "/", []string{"/"}},
		{posix, "/A/B/C", []string{"/", "A", "B", "C"}},
		{windows, `C:\`, []string{`C:\`}},
		{windows, `c:/Users/Bob`, []string{`C:\`, "Users", "Bob"}},
		{windows, `\\srv\share\team`, []string{`\\srv\share`, "team"}},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			segs, err := tt.n.Segments(tt.folder)
			require.NoError(t, err)
			assert.Equal(t, tt.want, segs)
			assert.Equal(t, tt.n.ForDisplay(tt.folder), tt.n.Join(segs))
		})
	}

	_, err := posix.Segments("relative/dir")
	assert.Error(t, err)
}
