package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/footprint/internal/model"
)

// meterWidth is the number of cells in the confidence meter.
const meterWidth = 20

// SimpleWriter outputs a plain-text terminal feed: the trace, a risk
// summary and one card per platform.
type SimpleWriter struct {
	baseWriter

	// showTrace prints the trace lines before the results.
	showTrace bool

	// verbose adds signal sources, dorks and notes to each card.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithTrace controls whether the trace is printed.
func WithTrace(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showTrace = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// The trace is shown by default.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showTrace:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in human-readable form.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	if w.showTrace {
		w.writeTrace(&sb, run)
	}
	w.writeSummary(&sb, run)
	w.writeResults(&sb, run)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       FOOTPRINT IDENTITY REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:      %s\n", run.Target.Label())
	fmt.Fprintf(sb, "Scan Date:   %s\n", run.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:     %s\n", run.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:      %s\n", runStatus(run))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeTrace(sb *strings.Builder, run *model.Run) {
	if len(run.Trace) == 0 {
		return
	}
	writeSection(sb, "TRACE")
	for _, line := range run.Trace {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, run *model.Run) {
	writeSection(sb, "RISK SUMMARY")

	counts := run.RiskCounts()
	for _, level := range riskOrder {
		fmt.Fprintf(sb, "  %-8s %d\n", string(level)+":", counts[level])
	}
	fmt.Fprintf(sb, "\n  TOTAL:   %d platforms\n", len(run.Results))

	parts := make([]string, len(statusOrder))
	for i, status := range statusOrder {
		parts[i] = fmt.Sprintf("%d %s", len(run.ResultsByStatus(status)), status)
	}
	fmt.Fprintf(sb, "  STATUS:  %s\n\n", strings.Join(parts, ", "))
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, run *model.Run) {
	writeSection(sb, "PLATFORMS")

	if !run.HasResults() {
		sb.WriteString("  No platform results\n\n")
		return
	}

	for _, res := range run.Results {
		w.writeCard(sb, res)
	}
}

// writeCard writes one platform result.
func (w *SimpleWriter) writeCard(sb *strings.Builder, res model.PlatformResult) {
	fmt.Fprintf(sb, "%s  [%s CONFIDENCE]  (%s)\n",
		strings.ToUpper(res.Platform), res.RiskLevel, statusTitle(res.Status))
	fmt.Fprintf(sb, "  %s %d%% SIGNAL INTEGRITY\n", meter(res.Confidence), res.Confidence)
	fmt.Fprintf(sb, "  %s\n", res.Summary)

	if !res.HasSignals() {
		sb.WriteString("    [-] No signals\n")
	}
	for _, sig := range res.Signals {
		if w.verbose {
			fmt.Fprintf(sb, "    [+] %s (+%g, %s)\n", sig.Description, sig.Weight, sig.Source)
			continue
		}
		fmt.Fprintf(sb, "    [+] %s\n", sig.Description)
	}

	if res.ProfileURL != "" {
		fmt.Fprintf(sb, "  Profile: %s\n", res.ProfileURL)
	}
	if w.verbose && res.SearchQuery != "" {
		fmt.Fprintf(sb, "  Dork:    %s\n", res.SearchQuery)
	}
	if res.Note != "" {
		fmt.Fprintf(sb, "  Note:    %s\n", res.Note)
	}
	sb.WriteString("\n")
}

// meter draws a fixed-width bar for a 0-100 confidence.
func meter(confidence int) string {
	confidence = max(0, min(100, confidence))
	filled := confidence * meterWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", meterWidth-filled) + "]"
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by footprint\n")
	sb.WriteString("Simulated platforms are indicative only; verify before acting.\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
