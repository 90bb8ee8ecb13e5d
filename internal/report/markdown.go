package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/footprint/internal/model"
)

// MarkdownWriter outputs runs as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writePlatforms(md, run)
	w.writeTrace(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("Footprint Identity Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + run.Target.Label() + "`"},
			{"Scan Date", run.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Platforms", strconv.Itoa(len(run.Results))},
			{"Status", runStatus(run)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.Run) {
	md.H2("Risk Summary")
	md.PlainText("")

	counts := run.RiskCounts()
	rows := make([][]string, 0, len(riskOrder)+1)
	for _, level := range riskOrder {
		rows = append(rows, []string{riskTitle(level), strconv.Itoa(counts[level])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(run.Results)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Risk", "Platforms"},
		Rows:   rows,
	})
	md.PlainText("")

	if run.HasResults() {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, run, counts)
}

// writePieChart writes a mermaid pie chart of the risk distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.RiskLevel]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Platform Risk Distribution"),
		piechart.WithShowData(true),
	)
	for _, level := range riskOrder {
		if counts[level] > 0 {
			chart.LabelAndIntValue(riskTitle(level), uint64(counts[level]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run, counts map[model.RiskLevel]int) {
	switch {
	case run.Error != "":
		md.Cautionf("Analysis failed: %s", run.Error)
	case counts[model.RiskHigh] > 0:
		md.Warningf(
			"%d platform(s) show a high-confidence match for this identity.",
			counts[model.RiskHigh],
		)
	case counts[model.RiskMedium] > 0:
		md.Importantf(
			"%d platform(s) show a probable match for this identity.",
			counts[model.RiskMedium],
		)
	case run.HasResults():
		md.Note("Only weak signals were found.")
	default:
		md.Tip("No platform results for this identity.")
	}
	md.PlainText("")

	if failed := run.ResultsByStatus(model.StatusError); len(failed) > 0 && run.Error == "" {
		names := make([]string, len(failed))
		for i, res := range failed {
			names[i] = res.Platform
		}
		md.Cautionf("%d source(s) could not be queried: %s", len(failed), strings.Join(names, ", "))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePlatforms(md *markdown.Markdown, run *model.Run) {
	md.H2("Platforms")
	md.PlainText("")

	if !run.HasResults() {
		md.PlainText("No platform results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Results))
	for i, res := range run.Results {
		link := "-"
		if res.ProfileURL != "" {
			link = res.ProfileURL
		}
		rows[i] = []string{
			res.Platform,
			statusTitle(res.Status),
			strconv.Itoa(res.Confidence) + "%",
			riskTitle(res.RiskLevel),
			truncateString(link, 50),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Platform", "Status", "Confidence", "Risk", "Profile"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, res := range run.Results {
		md.Details(res.Platform, platformDetails(res))
	}
	md.PlainText("")
}

// platformDetails renders the summary, signals and dork of one result.
func platformDetails(res model.PlatformResult) string {
	var sb strings.Builder
	sb.WriteString(res.Summary)
	sb.WriteString("\n\n")
	if !res.HasSignals() {
		sb.WriteString("- No signals\n")
	}
	for _, sig := range res.Signals {
		fmt.Fprintf(&sb, "- %s (+%g, %s)\n", sig.Description, sig.Weight, sig.Source)
	}
	if res.SearchQuery != "" {
		fmt.Fprintf(&sb, "\nSearch: `%s`\n", res.SearchQuery)
	}
	if res.Note != "" {
		fmt.Fprintf(&sb, "\nNote: %s\n", res.Note)
	}
	return sb.String()
}

func (w *MarkdownWriter) writeTrace(md *markdown.Markdown, run *model.Run) {
	if len(run.Trace) == 0 {
		return
	}
	md.H2("Trace")
	md.PlainText("")
	lines := make([]string, len(run.Trace))
	for i, line := range run.Trace {
		lines[i] = "`" + line + "`"
	}
	md.BulletList(lines...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [footprint](https://github.com/nao1215/footprint)*")
}
