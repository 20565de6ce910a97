package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikiexport/internal/config"
	"github.com/nao1215/wikiexport/internal/crawler"
	"github.com/nao1215/wikiexport/internal/database"
	wlog "github.com/nao1215/wikiexport/internal/log"
	"github.com/nao1215/wikiexport/internal/metrics"
	"github.com/nao1215/wikiexport/internal/model"
	"github.com/nao1215/wikiexport/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url>",
		Short: "Crawl a wiki and export its articles as Markdown",
		Long: `Crawl starts at the given page and follows links to other article pages
of the same origin whose path starts with the wiki prefix. Every article is
written to <out>/pages as Markdown with YAML front matter, and a line is
appended to <out>/manifest.jsonl.

Visited URLs are saved to <out>/seen_urls.txt, so running the same command
again resumes where the previous run stopped.

Examples:
  # Export up to 1500 pages of a wiki
  wikiexport crawl https://wiki.example.org/wiki/Main_Page

  # Export 100 pages into ./brodgar, two seconds between requests
  wikiexport crawl -o brodgar -n 100 --delay 2 https://wiki.example.org/wiki/Ring_of_Brodgar

  # Wikis that serve articles under /w/
  wikiexport crawl --wiki-prefix /w/ https://wiki.example.org/w/Start

  # Print the run summary as JSON and expose Prometheus metrics
  wikiexport crawl -j --metrics-addr 127.0.0.1:9090 https://wiki.example.org/wiki/Main_Page

Configuration file (.wikiexport) example:
  sites:
    wiki.example.org:
      cookie: "session=abc123"
      pathPrefix: "/w/"
      delay: 2`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl scope
	cmd.Flags().StringP("out", "o", config.DefaultOutDir,
		"Output folder")
	cmd.Flags().IntP("max-pages", "n", config.DefaultMaxPages,
		"Maximum number of pages to export in this run")
	cmd.Flags().String("wiki-prefix", config.DefaultPathPrefix,
		"Only crawl paths starting with this prefix")

	// Politeness
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"HTTP User-Agent, also matched against robots.txt")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Float64("delay", 0,
		"Delay between requests in seconds; robots.txt Crawl-delay and the 1 second minimum still apply")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt (not recommended)")
	cmd.Flags().Int("workers", config.DefaultWorkers,
		"Number of concurrent fetch workers (requests stay paced by the delay)")

	// Resume and transport
	cmd.Flags().Bool("retry-failed", false,
		"Leave failed URLs out of seen_urls.txt so a later run can retry them")
	cmd.Flags().String("proxy", "",
		"Proxy URL (socks5://host:port or http://host:port)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .wikiexport in current or home directory)")

	// History and metrics
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in <out>/crawl.db")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while crawling (e.g. 127.0.0.1:9090)")
	cmd.Flags().Bool("log-json", false,
		"Write logs to stderr as JSON lines")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Also write the run summary to this file; stdout then gets the text summary")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, jsonLogs)
	slog.SetDefault(logger)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, saving progress...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// newLogger returns the redacting logger in text or JSON form.
func newLogger(w io.Writer, verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return wlog.NewSecureJSONLogger(w, verbose)
	}
	return wlog.NewSecureLogger(w, verbose)
}

// buildConfig creates a Config from the config file and command flags.
// Site settings from the config file apply first; flags the user set win.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.StartURL = args[0]

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if cfg.OutDir, err = flags.GetString("out"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RetryFailed, err = flags.GetBool("retry-failed"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}

	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	cfg.HonorRobots = !noRobots

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.HistoryDB = !noHistory

	// The following may also come from the config file.
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("wiki-prefix") {
		if cfg.PathPrefix, err = flags.GetString("wiki-prefix"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyURL, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		seconds, err := flags.GetFloat64("delay")
		if err != nil {
			return nil, err
		}
		cfg.SetDelaySeconds(seconds)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// applyConfigFile merges the site settings for the start URL's host.
// A missing file is only an error when the user named it explicitly.
func applyConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if explicit {
			return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.ApplySite(file.GetSiteConfig(cfg.Host()))
	return nil
}

// runCrawl runs one crawl and prints its summary to out. extra options are
// passed to the engine after the ones derived from cfg.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, extra ...crawler.Option) error {
	opts := []crawler.Option{crawler.WithLogger(logger)}

	if cfg.HistoryDB {
		db, err := database.Open(cfg.HistoryDBPath(), database.DefaultOptions())
		if err != nil {
			// History is optional; the export itself decides about the output directory.
			logger.Warn("crawl history disabled", "path", cfg.HistoryDBPath(), "error", err)
		} else {
			defer db.Close()
			opts = append(opts, crawler.WithRecorder(database.NewRecorder(db)))
		}
	}

	if cfg.MetricsAddr != "" {
		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()

		m := metrics.New()
		addr, errCh, err := m.Serve(serveCtx, cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		logger.Info("serving metrics", "addr", addr.String())
		go func() {
			for err := range errCh {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		opts = append(opts, crawler.WithMetrics(m))
	}

	engine, err := crawler.New(cfg, append(opts, extra...)...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	summary, runErr := engine.Run(ctx)
	if summary != nil {
		if err := outputSummary(cfg, out, summary); err != nil {
			logger.Error("failed to write run summary", "error", err)
			if runErr == nil {
				return err
			}
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		return errors.New("crawl interrupted; run the same command again to resume")
	default:
		return fmt.Errorf("crawl aborted: %w", runErr)
	}
}

// outputSummary writes the run summary in the requested format. With a report
// file, the file gets the requested format and out gets the text summary.
func outputSummary(cfg *config.Config, out io.Writer, summary *model.RunSummary) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, out).WriteSummary(summary)
		return err
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	writer := report.NewMultiWriter(
		report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)),
		newReportWriter(cfg, f),
	)
	_, err = writer.WriteSummary(summary)
	return err
}

// newReportWriter picks the writer for the configured report format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}
