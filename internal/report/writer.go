package report

import (
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/footprint/internal/model"
)

// Writer renders a run to some destination.
type Writer interface {
	// Write outputs the run and returns the number of bytes written.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes a run to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to every Writer and stops on the first error.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
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

// riskOrder is the display order of risk levels.
var riskOrder = []model.RiskLevel{model.RiskHigh, model.RiskMedium, model.RiskLow}

// statusOrder is the display order of result statuses.
var statusOrder = []model.Status{model.StatusFound, model.StatusPotential, model.StatusMissing, model.StatusError}

var titleCaser = cases.Title(language.English)

// statusTitle returns a display form of a status, e.g. "Found".
func statusTitle(s model.Status) string {
	return titleCaser.String(string(s))
}

// riskTitle returns a display form of a risk level, e.g. "High".
func riskTitle(r model.RiskLevel) string {
	return titleCaser.String(strings.ToLower(string(r)))
}

// runStatus describes whether the run completed.
func runStatus(run *model.Run) string {
	if run.Error != "" {
		return "ERROR - " + run.Error
	}
	return "Complete"
}

// truncateString shortens s to maxLen runes, ending with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
