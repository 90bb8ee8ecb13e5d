package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/scorer"
)

// createTestRun creates a run with sample data for testing.
func createTestRun() *model.Run {
	run := model.NewRun(model.AnalysisInput{Username: "octocat"}, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	run.Elapsed = 1500 * time.Millisecond
	run.Trace = []string{
		"> [INIT] Starting correlation engine...",
		"> [CORE] Computing confidence matrix...",
	}
	run.Results = []model.PlatformResult{
		scorer.NewPlatformResult("GitHub", model.StatusFound, []model.Signal{
			model.NewSignal(model.KindUsername, "octocat", 25, "Exact username match on GitHub", "GitHub API"),
			model.NewSignal(model.KindName, "The Octocat", 10, "Profile name: The Octocat", "GitHub API"),
			model.NewSignal(model.KindPlatform, "GitHub", 40, "Public repositories present", "GitHub API"),
		}, scorer.WithProfileURL("https://github.com/octocat")),
		scorer.NewPlatformResult("Twitter", model.StatusPotential, []model.Signal{
			model.NewSignal(model.KindUsername, "octocat", 45, "Username pattern match", "Twitter index"),
		}, scorer.WithSearchQuery(`site:twitter.com "octocat"`)),
		scorer.NewPlatformResult("Gravatar", model.StatusError, nil, scorer.WithNote("request failed")),
	}
	return run
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, trace and cards", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(createTestRun())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("got n=%d, buffer has %d bytes", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"FOOTPRINT IDENTITY REPORT",
			"Target:      octocat",
			"Elapsed:     1.5s",
			"Status:      Complete",
			"> [INIT] Starting correlation engine...",
			"GITHUB  [HIGH CONFIDENCE]  (Found)",
			"[###############-----] 75% SIGNAL INTEGRITY",
			"[+] Exact username match on GitHub",
			"Profile: https://github.com/octocat",
			"TWITTER  [MEDIUM CONFIDENCE]  (Potential)",
			"GRAVATAR  [LOW CONFIDENCE]  (Error)",
			"Note:    request failed",
			"HIGH:    1",
			"TOTAL:   3 platforms",
			"STATUS:  1 found, 1 potential, 0 missing, 1 error",
			"[-] No signals",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "Dork:") {
			t.Error("expected dork to be hidden without verbose")
		}
	})

	t.Run("verbose adds sources and dorks", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "(+25, GitHub API)") {
			t.Errorf("expected signal source in verbose output\n%s", output)
		}
		if !strings.Contains(output, `Dork:    site:twitter.com "octocat"`) {
			t.Errorf("expected dork in verbose output\n%s", output)
		}
	})

	t.Run("trace can be hidden", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithTrace(false)).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "[INIT]") {
			t.Error("expected trace to be hidden")
		}
	})

	t.Run("writes empty and failed runs", func(t *testing.T) {
		t.Parallel()

		run := model.NewRun(model.AnalysisInput{Email: "a@b.io"}, time.Now())
		run.Error = "context canceled"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "No platform results") {
			t.Error("expected empty results message")
		}
		if !strings.Contains(output, "ERROR - context canceled") {
			t.Error("expected error status")
		}
	})
}

// TestMeter tests the confidence meter.
func TestMeter(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		confidence int
		expected   string
	}{
		{0, "[--------------------]"},
		{50, "[##########----------]"},
		{100, "[####################]"},
		{140, "[####################]"},
		{-5, "[--------------------]"},
	}

	for _, tc := range testCases {
		if got := meter(tc.confidence); got != tc.expected {
			t.Errorf("meter(%d) = %q, expected %q", tc.confidence, got, tc.expected)
		}
	}
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes the run as JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.Run
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(decoded.Results) != 3 || decoded.Results[0].Platform != "GitHub" {
			t.Errorf("unexpected results: %+v", decoded.Results)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output with one trailing newline")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"target\"") {
			t.Errorf("expected indented output:\n%s", buf.String())
		}
	})

	t.Run("version wrapper", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithVersion("v1.2.3")).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded struct {
			Version     string         `json:"version"`
			RiskSummary map[string]int `json:"risk_summary"`
			Run         model.Run      `json:"run"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Version != "v1.2.3" {
			t.Errorf("got version %q", decoded.Version)
		}
		if decoded.RiskSummary["HIGH"] != 1 || decoded.RiskSummary["LOW"] != 1 {
			t.Errorf("unexpected risk summary: %v", decoded.RiskSummary)
		}
		if decoded.Run.Target.Username != "octocat" {
			t.Errorf("unexpected run: %+v", decoded.Run.Target)
		}
	})

	t.Run("write value", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteValue(map[string]int{"a": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\"a\":1}\n" {
			t.Errorf("got %q", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables, chart and details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestRun()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Footprint Identity Report",
			"## Risk Summary",
			"## Platforms",
			"75%",
			"https://github.com/octocat",
			"pie",
			"<details>",
			"Platform Risk Distribution",
			"[!WARNING]",
			"Exact username match on GitHub",
			"## Trace",
			"1 source(s) could not be queried: Gravatar",
			"- No signals",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("empty run gets a tip and no chart", func(t *testing.T) {
		t.Parallel()

		run := model.NewRun(model.AnalysisInput{Username: "nobody"}, time.Now())

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if strings.Contains(output, "pie") {
			t.Error("expected no chart for empty run")
		}
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert for empty run")
		}
	})
}

type failingWriter struct{}

func (failingWriter) Write(*model.Run) (int, error) {
	return 0, errors.New("boom")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var simple, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&simple), NewJSONWriter(&js))
		n, err := mw.Write(createTestRun())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != simple.Len()+js.Len() {
			t.Errorf("got total %d, expected %d", n, simple.Len()+js.Len())
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&after))
		if _, err := mw.Write(createTestRun()); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestTruncateString tests string truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のテキスト", 5, "日本..."},
	}

	for _, tc := range testCases {
		if got := truncateString(tc.input, tc.maxLen); got != tc.expected {
			t.Errorf("truncateString(%q, %d) = %q, expected %q", tc.input, tc.maxLen, got, tc.expected)
		}
	}
}
