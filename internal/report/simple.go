package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/wikiexport/internal/model"
)

// SimpleWriter outputs plain text for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-outcome breakdown and timing.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the detailed breakdown.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary prints the export count, the output locations and the delay
// that was honored. Aborted runs also print the reason.
func (w *SimpleWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	var sb strings.Builder

	if summary.State == model.RunStateAborted {
		fmt.Fprintf(&sb, "Crawl aborted: %s\n", orDash(summary.Error))
	}
	fmt.Fprintf(&sb, "Exported %d pages to: %s\n", summary.Exported, absPath(summary.OutDir))
	fmt.Fprintf(&sb, "Pages folder: %s\n", absPath(summary.PagesDir))
	fmt.Fprintf(&sb, "Manifest: %s\n", absPath(summary.ManifestPath))
	sb.WriteString(delaySentence(summary))
	sb.WriteString("\n")

	if w.verbose {
		fmt.Fprintf(&sb, "Seen file: %s\n", absPath(summary.SeenPath))
		fmt.Fprintf(&sb, "Visited: %d  Skipped: %d  Pending: %d\n", summary.Visited, summary.Skipped(), summary.Pending)
		for _, o := range skippedOutcomes(summary) {
			fmt.Fprintf(&sb, "  %-18s %d\n", o, summary.Outcomes[o])
		}
		fmt.Fprintf(&sb, "Elapsed: %s\n", summary.Elapsed().Round(1e6))
	}

	return io.WriteString(w.output, sb.String())
}

// WriteHistory prints one line per run.
func (w *SimpleWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("No crawl history\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-5s  %-10s  %8s  %7s  %-23s  %s\n", "ID", "STATE", "EXPORTED", "VISITED", "STARTED", "START URL")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-5d  %-10s  %8d  %7d  %-23s  %s\n", r.ID, r.State, r.Exported, r.Visited(), formatTime(r.StartedAt), r.StartURL)
	}
	return io.WriteString(w.output, sb.String())
}

// WriteRun prints a run header followed by one line per URL.
func (w *SimpleWriter) WriteRun(run *model.RunRecord, entries []model.CrawlEntry) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %d (%s)\n", run.ID, run.State)
	fmt.Fprintf(&sb, "Start URL: %s\n", run.StartURL)
	fmt.Fprintf(&sb, "Started:   %s\n", formatTime(run.StartedAt))
	fmt.Fprintf(&sb, "Finished:  %s\n", formatTime(run.FinishedAt))
	fmt.Fprintf(&sb, "Exported:  %d\n\n", run.Exported)

	for _, e := range entries {
		detail := e.MDPath
		if e.Outcome == model.OutcomeHTTPStatus && e.StatusCode != 0 {
			detail = fmt.Sprintf("HTTP %d", e.StatusCode)
		}
		if e.Outcome == model.OutcomeNotHTML {
			detail = e.ContentType
		}
		fmt.Fprintf(&sb, "  %-18s %s", e.Outcome, e.URL)
		if detail != "" {
			fmt.Fprintf(&sb, "  (%s)", detail)
		}
		sb.WriteString("\n")
	}
	return io.WriteString(w.output, sb.String())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
