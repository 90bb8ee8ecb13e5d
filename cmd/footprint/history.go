package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/footprint/internal/config"
	"github.com/nao1215/footprint/internal/database"
	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/report"
)

// Exposure directions of a comparison.
const (
	exposureIncreased = "increased"
	exposureDecreased = "decreased"
	exposureUnchanged = "unchanged"
)

// errNoHistoryAction is returned when history is called without an action flag.
var errNoHistoryAction = errors.New("specify --list-targets, --list <target> or --compare <target>")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs and compare them",
		Long: `History reads runs stored by 'footprint scan'.

A target is addressed by its label (the username, lower-cased email or
phone number that was analyzed), by its target key, or by the key prefix
shown by --list-targets. Different inputs can share a label, e.g. a
username alone and the same username with an email; use the key then.

A comparison shows platforms that appeared or disappeared since the
previous run and how the confidence of the remaining platforms moved.

Examples:
  # List every analyzed target
  footprint history --list-targets

  # List the runs of a target
  footprint history --list octocat

  # Compare the latest two runs of a target
  footprint history --compare octocat

  # Compare the latest run with a specific run
  footprint history --compare octocat --with-run-id 3

  # Output the comparison as JSON
  footprint history --compare octocat --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-targets", "L", false, "List every analyzed target")
	cmd.Flags().StringP("list", "l", "", "List the runs of a target")
	cmd.Flags().String("compare", "", "Compare the latest run of a target with an earlier one")
	cmd.Flags().Int64P("with-run-id", "i", 0, "Compare with a specific run by ID (see --list)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	listTargets bool
	list        string
	compare     string
	withRunID   int64
	json        bool
	dbDir       string
}

func parseHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var opts historyOptions
	var err error
	flags := cmd.Flags()

	if opts.listTargets, err = flags.GetBool("list-targets"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetString("list"); err != nil {
		return opts, err
	}
	if opts.compare, err = flags.GetString("compare"); err != nil {
		return opts, err
	}
	if opts.withRunID, err = flags.GetInt64("with-run-id"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}

	if !opts.listTargets && opts.list == "" && opts.compare == "" {
		return opts, errNoHistoryAction
	}
	return opts, nil
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(context.Background(), db, cmd.OutOrStdout(), opts)
}

func runHistory(ctx context.Context, db *database.RunDB, out io.Writer, opts historyOptions) error {
	switch {
	case opts.listTargets:
		return listTargets(ctx, db, out, opts.json)
	case opts.list != "":
		return listRuns(ctx, db, out, opts.list, opts.json)
	default:
		return runComparison(ctx, db, out, opts.compare, opts.withRunID, opts.json)
	}
}

func listTargets(ctx context.Context, db *database.RunDB, out io.Writer, asJSON bool) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}
	if asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(targets)
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No analyzed targets found in the database.")
		fmt.Fprintln(out, "\nUse 'footprint scan' to analyze an identity.")
		return nil
	}

	fmt.Fprintf(out, "Analyzed targets (%d):\n\n", len(targets))
	fmt.Fprintf(out, "  %-30s  %-5s  %-20s  %s\n", "Target", "Runs", "Last Scan", "Key")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 75))
	for _, t := range targets {
		fmt.Fprintf(out, "  %-30s  %-5d  %-20s  %s\n",
			t.Label, t.Runs, t.LastScan.Format("2006-01-02 15:04:05"), shortKey(t.TargetKey))
	}
	fmt.Fprintln(out, "\nUse 'footprint history --list <target>' to see the runs of a target.")
	return nil
}

func listRuns(ctx context.Context, db *database.RunDB, out io.Writer, target string, asJSON bool) error {
	metas, err := db.GetRunHistoryWithMetadata(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(metas)
		return err
	}

	if len(metas) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", target)
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", target, len(metas))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %s\n", "ID", "Date", "Platforms", "Risk Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, meta := range metas {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9d  %s\n",
			meta.ID,
			meta.DateScanned.Format("2006-01-02 15:04:05"),
			meta.ResultCount,
			formatRiskSummary(meta.RiskSummary),
		)
	}
	fmt.Fprintln(out, "\nUse 'footprint history --compare <target>' to compare the latest two runs.")
	return nil
}

// formatRiskSummary formats risk counts as "H:1 M:2 L:0".
func formatRiskSummary(summary map[string]int) string {
	if len(summary) == 0 {
		return "N/A"
	}
	return fmt.Sprintf("H:%d M:%d L:%d",
		summary[string(model.RiskHigh)], summary[string(model.RiskMedium)], summary[string(model.RiskLow)])
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func runComparison(ctx context.Context, db *database.RunDB, out io.Writer, target string, withRunID int64, asJSON bool) error {
	runs, err := db.GetRunHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no run history found for %s", target)
	}
	if len(runs) < 2 && withRunID == 0 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current := runs[0]
	var previous *model.Run
	if withRunID > 0 {
		previous, err = db.GetRunByID(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run with ID %d not found", withRunID)
		}
		if previous.TargetKey != current.TargetKey {
			return fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, previous.Target.Label(), target)
		}
	} else {
		previous = runs[1]
	}

	comparison := compareRuns(previous, current)
	if asJSON {
		_, err := report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(comparison)
		return err
	}
	outputComparisonText(out, comparison)
	return nil
}

// Comparison is the difference between two runs of the same target.
type Comparison struct {
	Target   string     `json:"target"`
	Previous RunSummary `json:"previous"`
	Current  RunSummary `json:"current"`

	// NewPlatforms appear only in the current run.
	NewPlatforms []model.PlatformResult `json:"new_platforms,omitempty"`

	// DroppedPlatforms appear only in the previous run.
	DroppedPlatforms []model.PlatformResult `json:"dropped_platforms,omitempty"`

	// Changes lists the platforms present in both runs.
	Changes []ConfidenceChange `json:"changes,omitempty"`

	// Exposure is "increased", "decreased" or "unchanged".
	Exposure string `json:"exposure"`
}

// RunSummary describes one side of a comparison.
type RunSummary struct {
	DateScanned time.Time `json:"date_scanned"`
	Platforms   int       `json:"platforms"`
	HighCount   int       `json:"high_count"`
	MediumCount int       `json:"medium_count"`
	LowCount    int       `json:"low_count"`
}

// ConfidenceChange is the confidence movement of one platform.
type ConfidenceChange struct {
	Platform string `json:"platform"`

	// Kind is the kind of the platform's first signal. It tells apart
	// results that share a platform name, such as a username hit and a
	// phone link on Telegram.
	Kind model.SignalKind `json:"kind,omitempty"`

	Previous int `json:"previous"`
	Current int `json:"current"`
	Delta   int `json:"delta"`
}

// resultKey identifies a platform result across runs.
type resultKey struct {
	platform string
	kind     model.SignalKind
}

func keyOf(res model.PlatformResult) resultKey {
	k := resultKey{platform: res.Platform}
	if len(res.Signals) > 0 {
		k.kind = res.Signals[0].Kind
	}
	return k
}

func summarizeRun(run *model.Run) RunSummary {
	counts := run.RiskCounts()
	return RunSummary{
		DateScanned: run.DateScanned,
		Platforms:   len(run.Results),
		HighCount:   counts[model.RiskHigh],
		MediumCount: counts[model.RiskMedium],
		LowCount:    counts[model.RiskLow],
	}
}

// compareRuns compares two runs result by result, matching results by
// platform name and first signal kind. New platforms and changes follow the
// order of the current run; dropped platforms are sorted by their previous
// confidence, then by name.
func compareRuns(previous, current *model.Run) *Comparison {
	c := &Comparison{
		Target:   current.Target.Label(),
		Previous: summarizeRun(previous),
		Current:  summarizeRun(current),
	}

	prevByKey := indexResults(previous.Results)
	currByKey := indexResults(current.Results)

	seen := make(map[resultKey]bool, len(current.Results))
	for _, res := range current.Results {
		key := keyOf(res)
		if seen[key] {
			continue
		}
		seen[key] = true

		prev, ok := prevByKey[key]
		if !ok {
			c.NewPlatforms = append(c.NewPlatforms, res)
			continue
		}
		c.Changes = append(c.Changes, ConfidenceChange{
			Platform: res.Platform,
			Kind:     key.kind,
			Previous: prev.Confidence,
			Current:  res.Confidence,
			Delta:    res.Confidence - prev.Confidence,
		})
	}
	for key, res := range prevByKey {
		if _, ok := currByKey[key]; !ok {
			c.DroppedPlatforms = append(c.DroppedPlatforms, res)
		}
	}
	sort.Slice(c.DroppedPlatforms, func(i, j int) bool {
		a, b := c.DroppedPlatforms[i], c.DroppedPlatforms[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		return keyOf(a).kind < keyOf(b).kind
	})

	c.Exposure = exposureDirection(c.Previous, c.Current)
	return c
}

// indexResults maps result keys to the first result with that key.
func indexResults(results []model.PlatformResult) map[resultKey]model.PlatformResult {
	m := make(map[resultKey]model.PlatformResult, len(results))
	for _, r := range results {
		if _, ok := m[keyOf(r)]; !ok {
			m[keyOf(r)] = r
		}
	}
	return m
}

// exposureDirection weighs risk counts so that one HIGH platform outweighs
// any realistic number of LOW ones.
func exposureDirection(previous, current RunSummary) string {
	score := func(s RunSummary) int {
		return s.HighCount*50 + s.MediumCount*10 + s.LowCount
	}
	switch p, c := score(previous), score(current); {
	case c > p:
		return exposureIncreased
	case c < p:
		return exposureDecreased
	default:
		return exposureUnchanged
	}
}

func outputComparisonText(out io.Writer, c *Comparison) {
	fmt.Fprintf(out, "Run Comparison: %s\n", c.Target)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nExposure: %s\n", formatExposure(c.Exposure))
	fmt.Fprintf(out, "\nPrevious run: %s\n", c.Previous.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current run:  %s\n", c.Current.DateScanned.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nRisk Summary:")
	fmt.Fprintf(out, "  %-10s  %-10s  %-10s  %-10s\n", "Risk", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	rows := []struct {
		name       string
		prev, curr int
	}{
		{"High", c.Previous.HighCount, c.Current.HighCount},
		{"Medium", c.Previous.MediumCount, c.Current.MediumCount},
		{"Low", c.Previous.LowCount, c.Current.LowCount},
		{"Total", c.Previous.Platforms, c.Current.Platforms},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %-10s  %-10d  %-10d  %-10s\n", r.name, r.prev, r.curr, formatDelta(r.curr-r.prev))
	}

	if len(c.NewPlatforms) > 0 {
		fmt.Fprintf(out, "\nNew Platforms (%d):\n", len(c.NewPlatforms))
		for _, res := range c.NewPlatforms {
			fmt.Fprintf(out, "  [+] %s: %d%% (%s)\n", res.Platform, res.Confidence, res.RiskLevel)
		}
	}
	if len(c.DroppedPlatforms) > 0 {
		fmt.Fprintf(out, "\nDropped Platforms (%d):\n", len(c.DroppedPlatforms))
		for _, res := range c.DroppedPlatforms {
			fmt.Fprintf(out, "  [-] %s: %d%% (%s)\n", res.Platform, res.Confidence, res.RiskLevel)
		}
	}
	if len(c.Changes) > 0 {
		fmt.Fprintln(out, "\nConfidence Changes:")
		for _, ch := range c.Changes {
			fmt.Fprintf(out, "  %-20s  %3d%% -> %3d%%  %s\n", changeLabel(ch), ch.Previous, ch.Current, formatDelta(ch.Delta))
		}
	}
}

// changeLabel names a change, adding the signal kind when it is set, e.g.
// "Telegram (phone)".
func changeLabel(ch ConfidenceChange) string {
	if ch.Kind == "" {
		return ch.Platform
	}
	return fmt.Sprintf("%s (%s)", ch.Platform, ch.Kind)
}

// formatDelta formats a signed change, e.g. "+3", "-1" or "0".
func formatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}

func formatExposure(direction string) string {
	switch direction {
	case exposureIncreased:
		return "INCREASED (more of the identity is visible)"
	case exposureDecreased:
		return "DECREASED (less of the identity is visible)"
	default:
		return "UNCHANGED"
	}
}
