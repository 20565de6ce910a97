package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/nao1215/wikiexport/internal/model"
)

// MarkdownWriter outputs GitHub-flavored markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteSummary implements Writer.
func (w *MarkdownWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Wiki Export Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + summary.StartURL + "`"},
			{"State", stateText(summary.State, summary.Error)},
			{"Exported", strconv.Itoa(summary.Exported)},
			{"Skipped", strconv.Itoa(summary.Skipped())},
			{"Pending", strconv.Itoa(summary.Pending)},
			{"Delay", seconds(summary.Delay) + "s (" + string(summary.DelaySource) + ")"},
			{"Elapsed", summary.Elapsed().Round(1e6).String()},
		},
	})
	md.PlainText("")

	if skipped := skippedOutcomes(summary); len(skipped) > 0 {
		md.H2("Skipped URLs")
		md.PlainText("")
		rows := make([][]string, 0, len(skipped))
		for _, o := range skipped {
			rows = append(rows, []string{"`" + string(o) + "`", strconv.Itoa(summary.Outcomes[o])})
		}
		md.Table(markdown.TableSet{Header: []string{"Outcome", "Count"}, Rows: rows})
		md.PlainText("")
	}

	md.H2("Output")
	md.PlainText("")
	md.BulletList(
		"Pages: `"+absPath(summary.PagesDir)+"`",
		"Manifest: `"+absPath(summary.ManifestPath)+"`",
		"Seen URLs: `"+absPath(summary.SeenPath)+"`",
	)

	return len(md.String()), md.Build()
}

// WriteHistory implements Writer.
func (w *MarkdownWriter) WriteHistory(runs []model.RunRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")
	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.State,
			strconv.Itoa(r.Exported),
			strconv.Itoa(r.Visited()),
			formatTime(r.StartedAt),
			formatTime(r.FinishedAt),
			r.StartURL,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "State", "Exported", "Visited", "Started", "Finished", "Start URL"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteRun implements Writer.
func (w *MarkdownWriter) WriteRun(run *model.RunRecord, entries []model.CrawlEntry) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Run " + strconv.FormatInt(run.ID, 10))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + run.StartURL + "`"},
			{"State", run.State},
			{"Exported", strconv.Itoa(run.Exported)},
			{"Started", formatTime(run.StartedAt)},
			{"Finished", formatTime(run.FinishedAt)},
		},
	})
	md.PlainText("")

	md.H2("URLs")
	md.PlainText("")
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := ""
		if e.StatusCode != 0 {
			status = strconv.Itoa(e.StatusCode)
		}
		rows = append(rows, []string{e.URL.String(), "`" + string(e.Outcome) + "`", status, e.Title, e.MDPath})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Outcome", "Status", "Title", "File"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

func stateText(state model.RunState, errMsg string) string {
	switch state {
	case model.RunStateCompleted:
		return "✅ Completed"
	case model.RunStateAborted:
		if errMsg != "" {
			return "❌ Aborted - " + errMsg
		}
		return "❌ Aborted"
	default:
		return state.String()
	}
}
