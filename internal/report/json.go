package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/footprint/internal/model"
)

// JSONWriter outputs runs as JSON for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// version, when set, wraps the run in a JSONReport.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed output with the given prefix and indent.
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

// WithVersion wraps every run with the tool version and a risk summary.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run as JSON followed by a newline.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	if w.version != "" {
		return w.writeJSON(NewJSONReport(run, w.version))
	}
	return w.writeJSON(run)
}

// WriteValue outputs any value with the writer's formatting. It is used for
// payloads that are not runs, such as history comparisons.
func (w *JSONWriter) WriteValue(v any) (int, error) {
	return w.writeJSON(v)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error
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

// JSONReport wraps a run with output metadata.
type JSONReport struct {
	// Version is the footprint version that produced the report.
	Version string `json:"version"`

	// RiskSummary counts results per risk level.
	RiskSummary map[model.RiskLevel]int `json:"risk_summary"`

	// Run is the analysis run.
	Run *model.Run `json:"run"`
}

// NewJSONReport creates a JSONReport for the run.
func NewJSONReport(run *model.Run, version string) *JSONReport {
	return &JSONReport{
		Version:     version,
		RiskSummary: run.RiskCounts(),
		Run:         run,
	}
}
