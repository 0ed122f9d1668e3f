// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index is the reference search backend: a SQLite database with an
// FTS5 table over extracted text chunks, built incrementally from source
// directories.
//
// Files are re-read only when their modification time changes. Zip
// archives are opened and their textual members indexed under
// "archive::member" paths. Files that are not plain text are still indexed
// by name and metadata so filename searches find them.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/docfinder/internal/logging"
	"github.com/pdiddy/docfinder/internal/pathnorm"
)

// DBFile is the database file name inside an index location.
const DBFile = "docfinder.db"

const defaultMaxResults = 500

// ErrNoIndex is returned when searching a location that was never indexed.
var ErrNoIndex = errors.New("no index found")

// Config holds store settings.
type Config struct {
	// MaxResults limits search results. Zero uses 500.
	MaxResults int

	// Normalizer turns disk paths into index and display form.
	Normalizer pathnorm.Normalizer

	Logger *zerolog.Logger
}

// Store manages one index database.
type Store struct {
	db         *sql.DB
	location   string
	maxResults int
	norm       pathnorm.Normalizer
	log        zerolog.Logger
}

// Open opens or creates the database at location/docfinder.db and creates
// the schema if needed.
func Open(location string, cfg Config) (*Store, error) {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	return open(location, cfg)
}

// OpenExisting opens the database at location, failing with ErrNoIndex
// when none has been built there.
func OpenExisting(location string, cfg Config) (*Store, error) {
	if _, err := os.Stat(filepath.Join(location, DBFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: run docfinder index first", ErrNoIndex, location)
		}
		return nil, fmt.Errorf("checking index: %w", err)
	}
	return open(location, cfg)
}

func open(location string, cfg Config) (*Store, error) {
	dbPath := filepath.Join(location, DBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		location:   location,
		maxResults: maxResults,
		norm:       cfg.Normalizer,
		log:        logging.OrNop(cfg.Logger).With().Str("component", "index").Logger(),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			display TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			size_kb INTEGER NOT NULL DEFAULT 0,
			mod_unix INTEGER,
			source TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_source ON files(source)`,
		`CREATE INDEX IF NOT EXISTS idx_files_type ON files(type)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			heading TEXT,
			content TEXT NOT NULL,
			row_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_path)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE chunks_fts USING fts5(heading, content, content=chunks, content_rowid=rowid)`,
			`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
				INSERT INTO chunks_fts(rowid, heading, content) VALUES (new.rowid, new.heading, new.content);
			END`,
			`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, heading, content) VALUES('delete', old.rowid, old.heading, old.content);
			END`,
			`CREATE TRIGGER chunks_au AFTER UPDATE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, heading, content) VALUES('delete', old.rowid, old.heading, old.content);
				INSERT INTO chunks_fts(rowid, heading, content) VALUES (new.rowid, new.heading, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Stats counts what the index holds.
type Stats struct {
	Sources int            `json:"sources" yaml:"sources"`
	Files   int            `json:"files" yaml:"files"`
	Chunks  int            `json:"chunks" yaml:"chunks"`
	ByType  map[string]int `json:"by_type" yaml:"by_type"`
}

// Stats returns index counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	for _, q := range []struct {
		sql  string
		dest *int
	}{
		{`SELECT count(*) FROM indexing_status`, &st.Sources},
		{`SELECT count(*) FROM files`, &st.Files},
		{`SELECT count(*) FROM chunks`, &st.Chunks},
	} {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("counting index rows: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT type, count(*) FROM files GROUP BY type`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting file types: %w", err)
	}
	defer rows.Close()

	st.ByType = make(map[string]int)
	for rows.Next() {
		var (
			tag string
			n   int
		)
		if err := rows.Scan(&tag, &n); err != nil {
			return Stats{}, fmt.Errorf("scanning type count: %w", err)
		}
		st.ByType[tag] = n
	}
	return st, rows.Err()
}
