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
	"slices"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docfinder/internal/index"
	"github.com/pdiddy/docfinder/internal/worker"
	"github.com/pdiddy/docfinder/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir...]",
	Short: "Build or update the search index",
	Long: `Index scans the given directories (or index.source_dirs from the
config) and adds their files to the index. Files whose modification time
is unchanged since the last run are skipped; files that disappeared are
removed. Zip archives are indexed member by member.

Use --stats to print what the index holds without scanning.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringSlice("include", nil, "glob patterns a file must match (doublestar syntax)")
	indexCmd.Flags().StringSlice("exclude", nil, "glob patterns to skip")
	indexCmd.Flags().Bool("stats", false, "print index statistics and exit")
	indexCmd.Flags().Bool("json", false, "print statistics as JSON")
	indexCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		asJSON, _ := cmd.Flags().GetBool("json")
		return printStats(ctx, cmd.OutOrStdout(), cfg, asJSON)
	}

	req, err := indexRequest(cmd, args, cfg)
	if err != nil {
		return err
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	listener := newTerminalListener(cmd.ErrOrStderr(), quiet)
	a, err := newApp(context.Background(), cfg, listener)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Reindex(req); err != nil {
		return err
	}
	msg, err := a.wait(ctx)
	if err != nil {
		return err
	}

	switch m := msg.(type) {
	case worker.IndexDoneMsg:
		if quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%d indexed, %d updated, %d skipped, %d removed, %d failed\n",
				m.Summary.Indexed, m.Summary.Updated, m.Summary.Skipped, m.Summary.Removed, m.Summary.Failed)
		}
		if m.Summary.Failed > 0 {
			return fmt.Errorf("%d file(s) failed indexing", m.Summary.Failed)
		}
		return nil
	case worker.FailedMsg:
		return m.Err
	case worker.CancelledMsg:
		return worker.ErrCancelled
	default:
		return fmt.Errorf("unexpected message %T", msg)
	}
}

// indexRequest merges positional dirs and flags over the config.
func indexRequest(cmd *cobra.Command, args []string, cfg types.Config) (types.IndexRequest, error) {
	opts := cfg.Index.IndexOptions
	if cmd.Flags().Changed("include") {
		opts.Include, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		extra, _ := cmd.Flags().GetStringSlice("exclude")
		opts.Exclude = append(slices.Clone(opts.Exclude), extra...)
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = cfg.Index.SourceDirs
	}
	if len(dirs) == 0 {
		return types.IndexRequest{}, errors.New("no directories to index: pass them as arguments or set index.source_dirs")
	}
	return types.IndexRequest{
		SourceDirs:    dirs,
		IndexLocation: cfg.Index.Location,
		Options:       opts,
	}, nil
}

func printStats(ctx context.Context, w io.Writer, cfg types.Config, asJSON bool) error {
	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	backend := index.NewBackend(index.Config{Logger: log})
	defer backend.Close()

	st, err := backend.Stats(ctx, cfg.Index.Location)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Fprintf(w, "Index:   %s\n", cfg.Index.Location)
	fmt.Fprintf(w, "Sources: %d\n", st.Sources)
	fmt.Fprintf(w, "Files:   %d\n", st.Files)
	fmt.Fprintf(w, "Chunks:  %d\n", st.Chunks)
	tags := make([]string, 0, len(st.ByType))
	for t := range st.ByType {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	for _, t := range tags {
		fmt.Fprintf(w, "  %-8s %d\n", t, st.ByType[t])
	}
	return nil
}
