package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikiexport/internal/config"
	"github.com/nao1215/wikiexport/internal/database"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// historyOptions holds the parsed history flags.
type historyOptions struct {
	outDir   string
	runID    int64
	limit    int
	json     bool
	markdown bool
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawl runs of an output folder",
		Long: `History reads <out>/crawl.db and lists past crawl runs, newest first.
With --run it prints every URL the run dequeued and what happened to it.

Examples:
  # List runs of ./wiki_export
  wikiexport history

  # Per-URL outcomes of run 3 as Markdown
  wikiexport history -o brodgar --run 3 --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("out", "o", config.DefaultOutDir,
		"Output folder of the crawl")
	cmd.Flags().Int64("run", 0,
		"Show the URLs of this run")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return runHistory(ctx, opts, cmd.OutOrStdout())
}

func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.outDir, err = flags.GetString("out"); err != nil {
		return opts, err
	}
	if opts.runID, err = flags.GetInt64("run"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.json && opts.markdown {
		return opts, config.ErrConflictingReportFormats
	}
	return opts, nil
}

func runHistory(ctx context.Context, opts historyOptions, out io.Writer) error {
	dbPath := filepath.Join(opts.outDir, config.HistoryDBFileName)
	db, err := database.Open(dbPath, database.Options{})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return fmt.Errorf("no crawl history in %s (run 'wikiexport crawl' first)", opts.outDir)
		}
		return err
	}
	defer db.Close()

	cfg := config.NewConfig()
	cfg.JSONReport = opts.json
	cfg.MarkdownReport = opts.markdown
	writer := newReportWriter(cfg, out)

	if opts.runID > 0 {
		run, err := db.GetRun(ctx, opts.runID)
		if err != nil {
			return err
		}
		entries, err := db.GetRunCrawls(ctx, opts.runID)
		if err != nil {
			return err
		}
		_, err = writer.WriteRun(run, entries)
		return err
	}

	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}
	for i := range runs {
		if runs[i].Outcomes, err = db.OutcomeCounts(ctx, runs[i].ID); err != nil {
			return err
		}
	}
	_, err = writer.WriteHistory(runs)
	return err
}
