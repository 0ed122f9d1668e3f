// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/docfinder/pkg/types"
)

// excerptBytes bounds the Paragraph of a result.
const excerptBytes = 600

// Search runs q against the index. Full-text queries are ranked by bm25;
// filename queries by how much of the name the query covers.
func (s *Store) Search(ctx context.Context, q types.QueryParams) ([]types.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.EffectiveScope() == types.ScopeFilename {
		return s.searchNames(ctx, q)
	}
	return s.searchContent(ctx, q)
}

func (s *Store) searchContent(ctx context.Context, q types.QueryParams) ([]types.SearchResult, error) {
	match := ftsQuery(q)
	if match == "" {
		return nil, nil
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT f.path, f.size_kb, f.mod_unix, f.type, c.heading, c.content, c.row_json,
			bm25(chunks_fts, 2.0, 1.0) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN files f ON f.path = c.file_path
		WHERE chunks_fts MATCH ?`)
	args = append(args, match)
	args = appendFilters(&qb, args, q)

	limit := s.maxResults
	if q.CaseSensitive {
		limit *= 4
	}
	qb.WriteString(` ORDER BY rank LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	needles := needlesOf(q)
	var results []types.SearchResult
	for rows.Next() {
		var (
			r       types.SearchResult
			mod     sql.NullInt64
			heading sql.NullString
			content string
			rowJSON sql.NullString
			rank    float64
		)
		if err := rows.Scan(&r.FilePath, &r.SizeKB, &mod, &r.FileType, &heading, &content, &rowJSON, &rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Heading = heading.String
		if q.CaseSensitive && !containsAll(r.Heading+"\n"+content, needles) {
			continue
		}

		r.Modified = modTime(mod)
		r.Score = normalizeRank(rank)
		r.Paragraph, r.Match = excerpt(content, needles, q.CaseSensitive)
		if rowJSON.Valid {
			if err := json.Unmarshal([]byte(rowJSON.String), &r.Row); err != nil {
				s.log.Debug().Err(err).Str("path", r.FilePath).Msg("bad row json")
			}
		}

		results = append(results, r)
		if len(results) == s.maxResults {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return results, nil
}

func (s *Store) searchNames(ctx context.Context, q types.QueryParams) ([]types.SearchResult, error) {
	needles := needlesOf(q)
	if len(needles) == 0 {
		return nil, nil
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT f.path, f.name, f.size_kb, f.mod_unix, f.type FROM files f WHERE 1=1`)
	for _, n := range needles {
		if q.CaseSensitive {
			qb.WriteString(` AND instr(f.name, ?) > 0`)
			args = append(args, n)
		} else {
			qb.WriteString(` AND f.name LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(n)+"%")
		}
	}
	args = appendFilters(&qb, args, q)
	qb.WriteString(` ORDER BY f.path LIMIT ?`)
	args = append(args, s.maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var (
			r    types.SearchResult
			name string
			mod  sql.NullInt64
		)
		if err := rows.Scan(&r.FilePath, &name, &r.SizeKB, &mod, &r.FileType); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Modified = modTime(mod)
		r.Score = nameScore(name, needles, q.CaseSensitive)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	slices.SortStableFunc(results, func(a, b types.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results, nil
}

// appendFilters adds the size, date and type conditions of q.
func appendFilters(qb *strings.Builder, args []any, q types.QueryParams) []any {
	if q.MinSizeKB > 0 {
		qb.WriteString(` AND f.size_kb >= ?`)
		args = append(args, q.MinSizeKB)
	}
	if q.MaxSizeKB > 0 {
		qb.WriteString(` AND f.size_kb <= ?`)
		args = append(args, q.MaxSizeKB)
	}
	if q.From != nil {
		qb.WriteString(` AND f.mod_unix >= ?`)
		args = append(args, startOfDay(*q.From).Unix())
	}
	if q.To != nil {
		qb.WriteString(` AND f.mod_unix < ?`)
		args = append(args, startOfDay(*q.To).AddDate(0, 0, 1).Unix())
	}
	if tags := types.NormalizeTags(q.Types); len(tags) > 0 {
		qb.WriteString(` AND f.type IN (?` + strings.Repeat(`, ?`, len(tags)-1) + `)`)
		for _, t := range tags {
			args = append(args, t)
		}
	}
	return args
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func modTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

// ftsQuery turns the user query into an FTS5 expression: one phrase for
// exact mode, prefix terms joined by AND for fuzzy mode.
func ftsQuery(q types.QueryParams) string {
	if q.EffectiveMode() == types.ModeExact {
		text := strings.TrimSpace(q.Query)
		if text == "" {
			return ""
		}
		return quote(text)
	}
	terms := strings.Fields(q.Query)
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, quote(t)+"*")
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// needlesOf returns the strings highlighted in excerpts and required by
// case-sensitive matching.
func needlesOf(q types.QueryParams) []string {
	if q.EffectiveMode() == types.ModeExact {
		if t := strings.TrimSpace(q.Query); t != "" {
			return []string{t}
		}
		return nil
	}
	return strings.Fields(q.Query)
}

func containsAll(text string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

// normalizeRank maps a bm25 rank (more negative is better) into (0, 1).
func normalizeRank(rank float64) float64 {
	s := -rank
	if s <= 0 {
		return 0
	}
	return s / (1 + s)
}

func nameScore(name string, needles []string, caseSensitive bool) float64 {
	joined := strings.Join(needles, " ")
	if (caseSensitive && name == joined) || (!caseSensitive && strings.EqualFold(name, joined)) {
		return 1
	}
	covered := 0
	for _, n := range needles {
		covered += len(n)
	}
	if len(name) == 0 {
		return 0
	}
	return min(float64(covered)/float64(len(name)), 0.99)
}

// excerpt returns at most excerptBytes of content around the earliest
// needle and the byte span of that needle within the excerpt.
func excerpt(content string, needles []string, caseSensitive bool) (string, *types.MatchSpan) {
	start, end := -1, -1
	for _, n := range needles {
		i := index(content, n, caseSensitive)
		if i >= 0 && (start < 0 || i < start) {
			start, end = i, i+len(n)
		}
	}

	if len(content) <= excerptBytes {
		if start < 0 {
			return content, nil
		}
		return content, &types.MatchSpan{Start: start, End: end}
	}

	from := 0
	if start > excerptBytes/3 {
		from = start - excerptBytes/3
	}
	for from > 0 && !utf8.RuneStart(content[from]) {
		from--
	}
	to := min(from+excerptBytes, len(content))
	for to < len(content) && !utf8.RuneStart(content[to]) {
		to--
	}

	text := content[from:to]
	if start < 0 || end > to {
		return text, nil
	}
	return text, &types.MatchSpan{Start: start - from, End: end - from}
}

// index finds needle in s. Without caseSensitive it compares with simple
// case folding and still returns a byte offset into s.
func index(s, needle string, caseSensitive bool) int {
	if needle == "" {
		return -1
	}
	if caseSensitive {
		return strings.Index(s, needle)
	}
	for i := 0; i+len(needle) <= len(s); i++ {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
