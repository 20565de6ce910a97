package report

import (
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nao1215/wikiexport/internal/model"
)

// Writer renders crawl results.
type Writer interface {
	// WriteSummary outputs the summary of a finished run.
	WriteSummary(summary *model.RunSummary) (int, error)

	// WriteHistory outputs a list of past runs.
	WriteHistory(runs []model.RunRecord) (int, error)

	// WriteRun outputs one past run and its per-URL outcomes.
	WriteRun(run *model.RunRecord, entries []model.CrawlEntry) (int, error)
}

// MultiWriter writes to several Writers, for example the terminal and a file.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteSummary implements Writer.
func (m *MultiWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSummary(summary) })
}

// WriteHistory implements Writer.
func (m *MultiWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteHistory(runs) })
}

// WriteRun implements Writer.
func (m *MultiWriter) WriteRun(run *model.RunRecord, entries []model.CrawlEntry) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRun(run, entries) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// absPath makes output locations copy-pasteable. Relative paths are kept
// when the working directory cannot be determined.
func absPath(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// seconds formats a duration as a decimal number of seconds: 1, 1.5, 0.25.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// delaySentence explains which delay the run honored.
func delaySentence(summary *model.RunSummary) string {
	switch summary.DelaySource {
	case model.DelaySourceRobots:
		return "Used robots.txt Crawl-delay: " + seconds(summary.Delay) + " seconds"
	case model.DelaySourceOverride:
		return "Used override delay: " + seconds(summary.Delay) + " seconds"
	default:
		return "Used default delay: " + seconds(summary.Delay) + " seconds"
	}
}

// skippedOutcomes returns the non-exported outcomes with a non-zero count,
// in reporting order.
func skippedOutcomes(summary *model.RunSummary) []model.Outcome {
	var out []model.Outcome
	for _, o := range model.AllOutcomes {
		if o != model.OutcomeExported && summary.Outcomes[o] > 0 {
			out = append(out, o)
		}
	}
	return out
}

const timeLayout = "2006-01-02 15:04:05 MST"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
