// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/docfinder/internal/collapse"
	"github.com/pdiddy/docfinder/internal/filetype"
	"github.com/pdiddy/docfinder/internal/pathnorm"
	"github.com/pdiddy/docfinder/internal/queryfile"
	"github.com/pdiddy/docfinder/internal/session"
	"github.com/pdiddy/docfinder/internal/worker"
	"github.com/pdiddy/docfinder/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index",
	Long: `Search queries the index and prints matching files. Full-text scope
matches file contents; filename scope matches file names only.

--type and --folder narrow the displayed results without querying the
index again, so they also apply to a search reopened with --load.
--ext restricts the query itself to the given file types.`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("mode", "", "match mode: exact or fuzzy (default from config)")
	f.String("scope", "", "search scope: fulltext or filename (default from config)")
	f.Bool("case-sensitive", false, "match case")
	f.Int64("min-size", 0, "minimum file size in KB")
	f.Int64("max-size", 0, "maximum file size in KB")
	f.String("from", "", "modified on or after (YYYY-MM-DD)")
	f.String("to", "", "modified on or before (YYYY-MM-DD)")
	f.StringSlice("ext", nil, "restrict the query to these file types")

	f.StringSlice("type", nil, "show only these file types (pdf, md, txt, ...)")
	f.String("folder", "", "show only results inside this folder")
	f.String("sort", "", "sort by relevance, path, modified or size")
	f.Bool("asc", false, "sort ascending")
	f.Bool("desc", false, "sort descending")

	f.Bool("tree", false, "print the folder tree with result counts")
	f.Bool("group", false, "group results by file")
	f.StringSlice("collapse", nil, "files to collapse in grouped output; \"all\" collapses every file and then listed files stay open")
	f.Bool("json", false, "output results as JSON")
	f.Bool("yaml", false, "output results as YAML")
	f.String("save", "", "save the search and its results to a YAML file")
	f.String("load", "", "reopen a search saved with --save instead of querying")
	f.BoolP("quiet", "q", false, "suppress status output")

	searchCmd.MarkFlagsMutuallyExclusive("asc", "desc")
	searchCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	quiet, _ := cmd.Flags().GetBool("quiet")
	listener := newTerminalListener(cmd.ErrOrStderr(), quiet)
	a, err := newApp(context.Background(), cfg, listener)
	if err != nil {
		return err
	}
	defer a.Close()
	s := a.session

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		if err := loadSaved(s, load); err != nil {
			return err
		}
	} else {
		q, err := queryFromFlags(cmd, args, cfg)
		if err != nil {
			return err
		}
		if err := s.Search(q); err != nil {
			return err
		}
		msg, err := a.wait(ctx)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case worker.FailedMsg:
			return m.Err
		case worker.CancelledMsg:
			return worker.ErrCancelled
		}
	}

	if err := applyViewFlags(cmd, s); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := queryfile.Write(save, s.Query(), s.Filter(), s.Sort(), s.Original(), len(s.Output().Results)); err != nil {
			return err
		}
		listener.OnStatus("Saved search to " + save)
	}
	if out := s.Output(); out.Malformed > 0 {
		listener.OnStatus(fmt.Sprintf("%d result(s) have no containing folder", out.Malformed))
	}

	return printResults(cmd, s)
}

// queryFromFlags builds the backend query from args, flags and config.
func queryFromFlags(cmd *cobra.Command, args []string, cfg types.Config) (types.QueryParams, error) {
	f := cmd.Flags()
	q := types.QueryParams{
		Query:         strings.Join(args, " "),
		Mode:          cfg.Search.Mode,
		Scope:         cfg.Search.Scope,
		CaseSensitive: cfg.Search.CaseSensitive,
		IndexLocation: cfg.Index.Location,
	}
	if v, _ := f.GetString("mode"); v != "" {
		q.Mode = types.SearchMode(strings.ToLower(v))
	}
	if v, _ := f.GetString("scope"); v != "" {
		q.Scope = types.SearchScope(strings.ToLower(v))
	}
	if f.Changed("case-sensitive") {
		q.CaseSensitive, _ = f.GetBool("case-sensitive")
	}
	q.MinSizeKB, _ = f.GetInt64("min-size")
	q.MaxSizeKB, _ = f.GetInt64("max-size")
	q.Types, _ = f.GetStringSlice("ext")
	if err := checkTypes("ext", q.Types); err != nil {
		return q, err
	}

	var err error
	if q.From, err = dateFlag(cmd, "from"); err != nil {
		return q, err
	}
	if q.To, err = dateFlag(cmd, "to"); err != nil {
		return q, err
	}
	if strings.TrimSpace(q.Query) == "" {
		return q, errors.New("a query is required unless --load is given")
	}
	return q, nil
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(types.DateFormat, v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: use YYYY-MM-DD", name, v)
	}
	return &t, nil
}

// loadSaved installs a saved search in s with its saved view state.
func loadSaved(s *session.Session, path string) error {
	qf, err := queryfile.Read(path)
	if err != nil {
		return err
	}
	q, err := qf.Query.ToQuery()
	if err != nil {
		return err
	}
	s.SetSort(qf.View.SortSpec())
	s.SetTypes(qf.View.Types...)
	s.LoadResults(q, qf.Results)
	if qf.View.Folder != "" {
		s.SetFolder(qf.View.Folder)
	}
	return nil
}

// applyViewFlags changes the filter and sort of the installed results.
func applyViewFlags(cmd *cobra.Command, s *session.Session) error {
	f := cmd.Flags()
	if f.Changed("type") {
		tags, _ := f.GetStringSlice("type")
		if err := checkTypes("type", tags); err != nil {
			return err
		}
		s.SetTypes(tags...)
	}
	if f.Changed("folder") {
		folder, _ := f.GetString("folder")
		s.SetFolder(folder)
	}

	spec := s.Sort()
	changed := false
	if v, _ := f.GetString("sort"); v != "" {
		key, err := types.ParseSortKey(v)
		if err != nil {
			return err
		}
		spec.Key = key
		spec.Direction = defaultDirection(key)
		changed = true
	}
	if asc, _ := f.GetBool("asc"); asc {
		spec.Direction = types.Ascending
		changed = true
	}
	if desc, _ := f.GetBool("desc"); desc {
		spec.Direction = types.Descending
		changed = true
	}
	if changed {
		s.SetSort(spec)
	}

	if names, _ := f.GetStringSlice("collapse"); len(names) > 0 {
		toggleFiles(s.Collapse(), s.Output().Results, names)
	}
	return nil
}

// checkTypes rejects tags no file name can produce.
func checkTypes(flag string, tags []string) error {
	for _, t := range types.NormalizeTags(tags) {
		if !filetype.IsKnown(t) {
			return fmt.Errorf("unknown file type %q in --%s: use one of %s",
				t, flag, strings.Join(filetype.Known(), ", "))
		}
	}
	return nil
}

// defaultDirection is the natural direction of key: best, newest or
// largest first, except paths which read A to Z.
func defaultDirection(key types.SortKey) types.SortDirection {
	if key == types.SortPath {
		return types.Ascending
	}
	return types.Descending
}

// toggleFiles flips the collapse state of each named file among results.
// "all" collapses every file first, so names listed with it stay open.
func toggleFiles(store *collapse.Store, results []types.SearchResult, names []string) {
	files := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if !seen[r.FilePath] {
			seen[r.FilePath] = true
			files = append(files, r.FilePath)
		}
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "all" {
			for _, f := range files {
				store.Set(collapse.FileKey(f), true)
			}
			continue
		}
		want[pathnorm.ForIndex(n)] = true
	}
	for _, f := range files {
		if want[pathnorm.ForIndex(f)] {
			store.Toggle(collapse.FileKey(f))
		}
	}
}

// searchOutput is the machine-readable form of a search.
type searchOutput struct {
	Query      types.QueryParams    `json:"query" yaml:"query"`
	Filter     types.FilterState    `json:"filter" yaml:"filter"`
	Sort       types.SortSpec       `json:"sort" yaml:"sort"`
	Total      int                  `json:"total" yaml:"total"`
	Results    []types.SearchResult `json:"results" yaml:"results"`
	Aggregates map[string]int       `json:"folders" yaml:"folders"`
}

func printResults(cmd *cobra.Command, s *session.Session) error {
	w := cmd.OutOrStdout()
	out := s.Output()
	doc := searchOutput{
		Query:      s.Query(),
		Filter:     s.Filter(),
		Sort:       s.Sort(),
		Total:      len(s.Original()),
		Results:    out.Results,
		Aggregates: out.Aggregates,
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return encodeYAML(w, doc)
	}

	display := pathnorm.ForDisplay
	if tree, _ := cmd.Flags().GetBool("tree"); tree {
		renderTree(w, s.FolderTree(), s.Counts(), s.Filter().Folder)
		fmt.Fprintln(w)
	}
	grouped, _ := cmd.Flags().GetBool("group")
	if grouped || cmd.Flags().Changed("collapse") {
		renderGrouped(w, out.Results, s.Collapse(), display)
		return nil
	}
	renderTable(w, out.Results, display)
	return nil
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}
