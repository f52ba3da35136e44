package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/osmsandbox/internal/model"
)

// MarkdownWriter outputs the summary in Markdown format.
// This format is designed for documentation and sharing, for example in a
// mapping community forum post announcing a refreshed sandbox area.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides type-safe tables, lists, and GitHub-flavored
// markdown alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.UploadSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeCounts(md, summary)
	w.writeErrors(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the run header with changeset information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.UploadSummary) {
	md.H1("Sandbox Copy Summary")
	md.PlainText("")

	changeset := "(none opened)"
	if summary.ChangesetID != 0 {
		changeset = strconv.FormatInt(summary.ChangesetID, 10)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Bounding Box", "`" + summary.BBox + "`"},
			{"Date", summary.Date.Format("2006-01-02 15:04:05 MST")},
			{"Changeset", changeset},
			{"Status", w.statusText(summary)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell based on the summary state.
func (w *MarkdownWriter) statusText(summary *model.UploadSummary) string {
	if summary.Succeeded() {
		return "✅ Complete"
	}
	return "❌ Failed (nothing created)"
}

// writeCounts writes the delete and create counters.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, summary *model.UploadSummary) {
	md.H2("Results")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Operation", "Succeeded", "Attempted"},
		Rows: [][]string{
			{"Delete", strconv.Itoa(summary.Deleted), strconv.Itoa(summary.DeleteAttempted)},
			{"Create", strconv.Itoa(summary.Created), strconv.Itoa(summary.CreateAttempted)},
			{"Skipped (dangling references)", strconv.Itoa(summary.Skipped), "-"},
		},
	})
	md.PlainText("")

	switch {
	case len(summary.Errors) == 0:
		md.Tip("Every element transferred cleanly.")
	case summary.Succeeded():
		md.Warningf("%d element(s) could not be transferred; see the error table below.", len(summary.Errors))
	default:
		md.Caution("The run created nothing. The sandbox may be unchanged or partially cleared.")
	}
	md.PlainText("")
}

// writeErrors writes the per-element error table.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, summary *model.UploadSummary) {
	if len(summary.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")

	rows := make([][]string, len(summary.Errors))
	for i, e := range summary.Errors {
		rows[i] = []string{
			string(e.Kind),
			string(e.ElementType) + "/" + strconv.FormatInt(e.ElementID, 10),
			truncateString(e.Message, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Element", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen runes with ellipsis.
// Cutting on runes rather than bytes keeps multibyte text (street names,
// operator tags) valid UTF-8 in the rendered table.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
