// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pdiddy/docfinder/internal/filetype"
	"github.com/pdiddy/docfinder/pkg/types"
)

// dosEpochYear is the year of the zero MS-DOS timestamp. Members written
// without a time report a date in or before it.
const dosEpochYear = 1981

// errStop ends a directory walk when the event consumer stops listening.
var errStop = errors.New("consumer stopped")

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeUpdated
	outcomeSkipped
)

// sourceFile is a regular file found under a source directory.
type sourceFile struct {
	abs  string
	info fs.FileInfo
}

// document is one row of the files table with its chunks.
type document struct {
	path    string
	display string
	name    string
	tag     string
	sizeKB  int64
	mod     time.Time
	chunks  []chunk
}

// Build scans req.SourceDirs and brings the index up to date. Events are
// produced lazily; the walk stops as soon as the consumer stops ranging
// or ctx is cancelled.
func (s *Store) Build(ctx context.Context, req types.IndexRequest) iter.Seq[types.IndexEvent] {
	return func(yield func(types.IndexEvent) bool) {
		opts := req.Options
		for _, p := range append(append([]string{}, opts.Include...), opts.Exclude...) {
			if !doublestar.ValidatePattern(p) {
				yield(types.IndexEvent{
					Kind:    types.EventError,
					Message: fmt.Sprintf("invalid glob pattern %q", p),
					Err:     doublestar.ErrBadPattern,
					Fatal:   true,
				})
				return
			}
		}

		if !yield(types.IndexEvent{Kind: types.EventStatus, Message: fmt.Sprintf("Scanning %s...", strings.Join(req.SourceDirs, ", "))}) {
			return
		}
		if !yield(types.IndexEvent{Kind: types.EventProgress, Phase: "scanning"}) {
			return
		}

		files, unreadable, ok := s.scan(ctx, req, yield)
		if !ok || ctx.Err() != nil {
			return
		}
		if !yield(types.IndexEvent{Kind: types.EventStatus, Message: fmt.Sprintf("Found %d files", len(files))}) {
			return
		}

		var summary types.IndexSummary
		seen := make(map[string]bool, len(files))
		for i, f := range files {
			if ctx.Err() != nil {
				return
			}
			seen[f.abs] = true

			display := s.norm.ForDisplay(f.abs)
			if !yield(types.IndexEvent{Kind: types.EventProgress, Current: i + 1, Total: len(files), Phase: "indexing", Detail: display}) {
				return
			}

			res, warnings, err := s.indexSource(ctx, f, opts)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				summary.Failed++
				s.log.Warn().Err(err).Str("path", display).Msg("failed to index file")
				if !yield(types.IndexEvent{Kind: types.EventError, Message: "failed to index", Path: display, Err: err}) {
					return
				}
				continue
			}

			switch res {
			case outcomeSkipped:
				summary.Skipped++
			case outcomeUpdated:
				summary.Updated++
			default:
				summary.Indexed++
			}
			s.log.Debug().Str("path", display).Int("outcome", int(res)).Msg("indexed file")

			for _, w := range warnings {
				if !yield(w) {
					return
				}
			}
		}

		removed, err := s.removeMissing(ctx, req.SourceDirs, unreadable, seen)
		if err != nil {
			yield(types.IndexEvent{Kind: types.EventError, Message: "removing deleted files", Err: err, Fatal: true})
			return
		}
		summary.Removed = removed

		yield(types.IndexEvent{
			Kind: types.EventComplete,
			Message: fmt.Sprintf("indexed: %d, updated: %d, skipped: %d, removed: %d, failed: %d",
				summary.Indexed, summary.Updated, summary.Skipped, summary.Removed, summary.Failed),
			Summary: &summary,
		})
	}
}

// scan walks every source directory. It also returns the directories it
// could not read, and reports false when the consumer stopped listening.
func (s *Store) scan(ctx context.Context, req types.IndexRequest, yield func(types.IndexEvent) bool) ([]sourceFile, []string, bool) {
	indexDir, _ := filepath.Abs(s.location)
	byPath := make(map[string]sourceFile)
	var unreadable []string

	for _, dir := range req.SourceDirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			if !yield(types.IndexEvent{Kind: types.EventError, Message: "cannot resolve source directory", Path: dir, Err: err}) {
				return nil, nil, false
			}
			continue
		}

		walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				if p == root {
					return err
				}
				if d == nil || d.IsDir() {
					unreadable = append(unreadable, p)
				}
				if !yield(types.IndexEvent{Kind: types.EventWarning, Message: "cannot read", Path: p, Err: err}) {
					return errStop
				}
				return nil
			}

			rel, _ := filepath.Rel(root, p)
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if p == indexDir {
					return fs.SkipDir
				}
				if p != root && matchAny(req.Options.Exclude, rel, rel+"/", d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if len(req.Options.Include) > 0 && !matchAny(req.Options.Include, rel, d.Name()) {
				return nil
			}
			if matchAny(req.Options.Exclude, rel, d.Name()) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if !yield(types.IndexEvent{Kind: types.EventWarning, Message: "cannot stat", Path: p, Err: err}) {
					return errStop
				}
				return nil
			}
			byPath[p] = sourceFile{abs: p, info: info}
			return nil
		})

		switch {
		case errors.Is(walkErr, errStop):
			return nil, nil, false
		case walkErr != nil && ctx.Err() == nil:
			unreadable = append(unreadable, root)
			if !yield(types.IndexEvent{Kind: types.EventError, Message: "cannot scan source directory", Path: root, Err: walkErr}) {
				return nil, nil, false
			}
		}
	}

	files := make([]sourceFile, 0, len(byPath))
	for _, f := range byPath {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].abs < files[j].abs })
	return files, unreadable, true
}

func matchAny(patterns []string, names ...string) bool {
	for _, p := range patterns {
		for _, n := range names {
			if ok, _ := doublestar.Match(p, n); ok {
				return true
			}
		}
	}
	return false
}

// indexSource re-indexes f when its modification time changed since the
// last run.
func (s *Store) indexSource(ctx context.Context, f sourceFile, opts types.IndexOptions) (outcome, []types.IndexEvent, error) {
	modTime := f.info.ModTime().UTC().Format(time.RFC3339Nano)

	var storedModTime string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM indexing_status WHERE source = ?`, f.abs,
	).Scan(&storedModTime)
	switch {
	case err == nil && storedModTime == modTime:
		return outcomeSkipped, nil, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return 0, nil, fmt.Errorf("reading indexing status: %w", err)
	}
	isUpdate := err == nil

	xctx := ctx
	if opts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		xctx, cancel = context.WithTimeout(ctx, opts.ExtractTimeout)
		defer cancel()
	}
	docs, warnings, err := s.documents(xctx, f, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, nil, fmt.Errorf("extraction timed out after %s", opts.ExtractTimeout)
		}
		return 0, nil, err
	}

	if err := s.write(ctx, f.abs, modTime, docs); err != nil {
		return 0, nil, err
	}
	if isUpdate {
		return outcomeUpdated, warnings, nil
	}
	return outcomeIndexed, warnings, nil
}

// documents builds the rows for one source file: the file itself and,
// for zip archives, every member.
func (s *Store) documents(ctx context.Context, f sourceFile, opts types.IndexOptions) ([]document, []types.IndexEvent, error) {
	doc := document{
		path:    s.norm.ForIndex(f.abs),
		display: s.norm.ForDisplay(f.abs),
		name:    filepath.Base(f.abs),
		tag:     filetype.Of(f.abs),
		sizeKB:  sizeKB(f.info.Size()),
		mod:     f.info.ModTime(),
	}

	if doc.tag == "zip" {
		members, warnings, err := s.zipMembers(ctx, f.abs, opts)
		if err != nil {
			return nil, nil, err
		}
		return append([]document{doc}, members...), warnings, nil
	}

	if !filetype.Textual(doc.tag) || tooLarge(doc.sizeKB, opts) {
		return []document{doc}, nil, nil
	}

	fh, err := os.Open(f.abs)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer fh.Close()

	doc.chunks, err = extract(ctx, fh, doc.tag)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting text: %w", err)
	}
	return []document{doc}, nil, nil
}

// zipMembers indexes the members of a zip archive. A member that cannot
// be read becomes a warning; the rest of the archive is still indexed.
func (s *Store) zipMembers(ctx context.Context, archive string, opts types.IndexOptions) ([]document, []types.IndexEvent, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	var (
		docs     []document
		warnings []types.IndexEvent
		seen     = make(map[string]bool)
	)
	for _, zf := range zr.File {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if zf.FileInfo().IsDir() {
			continue
		}
		member := archive + "::" + zf.Name
		doc := document{
			path:    s.norm.ForIndex(member),
			display: s.norm.ForDisplay(member),
			name:    path.Base(strings.ReplaceAll(zf.Name, `\`, "/")),
			tag:     filetype.Of(zf.Name),
			sizeKB:  sizeKB(int64(zf.UncompressedSize64)),
			mod:     zf.Modified,
		}
		if doc.mod.Year() < dosEpochYear {
			doc.mod = time.Time{}
		}
		if seen[doc.path] {
			continue
		}
		seen[doc.path] = true

		if filetype.Textual(doc.tag) && !tooLarge(doc.sizeKB, opts) {
			chunks, err := readMember(ctx, zf, doc.tag)
			if err != nil {
				if ctx.Err() != nil {
					return nil, nil, ctx.Err()
				}
				warnings = append(warnings, types.IndexEvent{
					Kind:    types.EventWarning,
					Message: "cannot read archive member",
					Path:    doc.display,
					Err:     err,
				})
			}
			doc.chunks = chunks
		}
		docs = append(docs, doc)
	}
	return docs, warnings, nil
}

func readMember(ctx context.Context, zf *zip.File, tag string) ([]chunk, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return extract(ctx, io.LimitReader(rc, int64(zf.UncompressedSize64)+1), tag)
}

// write replaces every row that came from source in one transaction.
func (s *Store) write(ctx context.Context, source, modTime string, docs []document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting old rows: %w", err)
	}

	fileStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (path, display, name, type, size_kb, mod_unix, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer fileStmt.Close()

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (file_path, ordinal, heading, content, row_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for _, d := range docs {
		var mod sql.NullInt64
		if !d.mod.IsZero() {
			mod = sql.NullInt64{Int64: d.mod.Unix(), Valid: true}
		}
		if _, err := fileStmt.ExecContext(ctx, d.path, d.display, d.name, d.tag, d.sizeKB, mod, source); err != nil {
			return fmt.Errorf("inserting file %s: %w", d.display, err)
		}
		for i, c := range d.chunks {
			var row sql.NullString
			if c.Row != nil {
				data, err := json.Marshal(c.Row)
				if err != nil {
					return fmt.Errorf("encoding row: %w", err)
				}
				row = sql.NullString{String: string(data), Valid: true}
			}
			if _, err := chunkStmt.ExecContext(ctx, d.path, i, c.Heading, c.Content, row); err != nil {
				return fmt.Errorf("inserting chunk %d of %s: %w", i, d.display, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}

	return tx.Commit()
}

// removeMissing deletes sources under dirs that the last scan did not see.
// Sources under an unreadable directory are kept: the walk could not tell
// whether they still exist.
func (s *Store) removeMissing(ctx context.Context, dirs, unreadable []string, seen map[string]bool) (int, error) {
	roots := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if abs, err := filepath.Abs(d); err == nil {
			roots = append(roots, abs)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source FROM indexing_status`)
	if err != nil {
		return 0, fmt.Errorf("listing indexed sources: %w", err)
	}
	var stale []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning source: %w", err)
		}
		if !seen[src] && underAny(src, roots) && !underAny(src, unreadable) {
			stale = append(stale, src)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, src := range stale {
		if err := s.remove(ctx, src); err != nil {
			return 0, err
		}
		s.log.Debug().Str("source", src).Msg("removed deleted file from index")
	}
	return len(stale), nil
}

func (s *Store) remove(ctx context.Context, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting %s: %w", source, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indexing_status WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting status of %s: %w", source, err)
	}
	return tx.Commit()
}

func underAny(p string, roots []string) bool {
	for _, r := range roots {
		rel, err := filepath.Rel(r, p)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// sizeKB rounds up so any non-empty file is at least 1 KB; 0 stays
// "unknown".
func sizeKB(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + 1023) / 1024
}

func tooLarge(kb int64, opts types.IndexOptions) bool {
	return opts.MaxFileSizeKB > 0 && kb > opts.MaxFileSizeKB
}
