package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/wikiexport/internal/model"
)

// JSONWriter outputs JSON.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// jsonSummary adds derived values and replaces the nanosecond delay with seconds.
type jsonSummary struct {
	*model.RunSummary

	Delay          float64 `json:"delay"`
	Skipped        int     `json:"skipped"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// WriteSummary implements Writer.
func (w *JSONWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	return w.writeJSON(jsonSummary{
		RunSummary:     summary,
		Delay:          summary.Delay.Seconds(),
		Skipped:        summary.Skipped(),
		ElapsedSeconds: summary.Elapsed().Seconds(),
	})
}

// WriteHistory implements Writer. An empty history is written as [].
func (w *JSONWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	if runs == nil {
		runs = []model.RunRecord{}
	}
	return w.writeJSON(runs)
}

type jsonRun struct {
	Run    *model.RunRecord      `json:"run"`
	Crawls []model.CrawlEntry    `json:"crawls"`
	Counts map[model.Outcome]int `json:"outcomes"`
}

// WriteRun implements Writer.
func (w *JSONWriter) WriteRun(run *model.RunRecord, entries []model.CrawlEntry) (int, error) {
	if entries == nil {
		entries = []model.CrawlEntry{}
	}
	return w.writeJSON(jsonRun{
		Run:    run,
		Crawls: entries,
		Counts: countOutcomes(entries),
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}

func countOutcomes(entries []model.CrawlEntry) map[model.Outcome]int {
	counts := make(map[model.Outcome]int)
	for _, e := range entries {
		counts[e.Outcome]++
	}
	return counts
}
