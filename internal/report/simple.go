package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/osmsandbox/internal/model"
)

// SimpleWriter outputs a human-readable text summary.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and pipes cleanly into
// files and other tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-element error list in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with the full per-element error list.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.UploadSummary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeErrors(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run header with changeset information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.UploadSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                 SANDBOX COPY SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Bounding Box: %s\n", summary.BBox))
	sb.WriteString(fmt.Sprintf("Date:         %s\n", summary.Date.Format("2006-01-02 15:04:05 MST")))
	if summary.ChangesetID != 0 {
		sb.WriteString(fmt.Sprintf("Changeset:    %d\n", summary.ChangesetID))
	} else {
		sb.WriteString("Changeset:    (none opened)\n")
	}

	if summary.Succeeded() {
		sb.WriteString("Status:       Complete\n")
	} else {
		sb.WriteString("Status:       FAILED (nothing created)\n")
	}

	sb.WriteString("\n")
}

// writeCounts writes the delete and create counters.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *model.UploadSummary) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Deleted:  %d of %d\n", summary.Deleted, summary.DeleteAttempted))
	sb.WriteString(fmt.Sprintf("  Created:  %d of %d\n", summary.Created, summary.CreateAttempted))
	sb.WriteString(fmt.Sprintf("  Skipped:  %d (dangling references)\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("  Errors:   %d\n", len(summary.Errors)))
	sb.WriteString("\n")
}

// writeErrors writes the per-element error list. Without verbose mode only
// a count per kind is shown to keep large runs readable.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, summary *model.UploadSummary) {
	if len(summary.Errors) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("ERRORS\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	if !w.verbose {
		kinds := []model.ElementErrorKind{
			model.ErrorDeleteFailed,
			model.ErrorCreateFailed,
			model.ErrorDanglingReference,
		}
		for _, kind := range kinds {
			if n := len(summary.ErrorsOfKind(kind)); n > 0 {
				sb.WriteString(fmt.Sprintf("  %s: %d (run with --verbose for details)\n", kind, n))
			}
		}
		sb.WriteString("\n")
		return
	}

	for _, e := range summary.Errors {
		sb.WriteString(fmt.Sprintf("  [%s] %s/%d: %s\n", e.Kind, e.ElementType, e.ElementID, e.Message))
	}
	sb.WriteString("\n")
}
