// Package aggregator runs the source checkers for an identity and folds
// their outcomes into a sorted list of scored platform results.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/footprint/internal/checker"
	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/scorer"
	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout is the per-checker time budget.
const DefaultCheckTimeout = 5 * time.Second

// cancelGrace is how long a checker may take to wind down after its
// deadline before it is reported as timed out.
const cancelGrace = 250 * time.Millisecond

// Trace lines.
const (
	traceInit        = "> [INIT] Received input vector"
	traceHashing     = "> [CORE] Hashing identity markers..."
	traceEmail       = "> [MOD_EMAIL] Tracing email footprint..."
	tracePhone       = "> [MOD_PHONE] Generating phone lookup vectors..."
	traceName        = "> [MOD_NAME] Full name recorded for correlation"
	traceCorrelating = "> [CORE] Correlating results..."
	traceComputing   = "> [CORE] Computing confidence matrix..."
	traceSignals     = "[SYS] CORRELATING_IDENTITY_SIGNALS..."
	traceFailure     = "> [ERR] SYSTEM CONNECTION FAILURE"
)

var (
	// ErrOrchestration is returned when the analysis as a whole failed,
	// as opposed to a single source being unavailable.
	ErrOrchestration = errors.New("analysis orchestration failed")

	// ErrCheckerPanic is wrapped when a checker panics.
	ErrCheckerPanic = errors.New("checker panicked")

	// ErrCheckTimeout is the reason attached to a checker that exceeded
	// its time budget without returning.
	ErrCheckTimeout = errors.New("check timed out")

	// ErrUnknownFailurePolicy is returned by ParseFailurePolicy.
	ErrUnknownFailurePolicy = errors.New("unknown failure policy")
)

// FailurePolicy decides how a failed source check is rendered.
type FailurePolicy string

const (
	// FailureAsError renders a failed check as an "error" result with a note.
	FailureAsError FailurePolicy = "error"

	// FailureAsMissing renders a failed check exactly like an absent
	// identity. Failures become indistinguishable from negatives.
	FailureAsMissing FailurePolicy = "missing"
)

// ParseFailurePolicy converts a string to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailureAsError, FailureAsMissing:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFailurePolicy, s)
	}
}

// Aggregator dispatches checkers and merges their results.
type Aggregator struct {
	checkers     []checker.Checker
	logger       *slog.Logger
	checkTimeout time.Duration
	policy       FailurePolicy
	clock        func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithCheckTimeout sets the per-checker time budget.
func WithCheckTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.checkTimeout = d
		}
	}
}

// WithFailurePolicy sets how failed checks are rendered.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(a *Aggregator) {
		if p != "" {
			a.policy = p
		}
	}
}

// WithClock sets the clock used for the run timestamp and elapsed time.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// New creates an Aggregator. Checkers run in the given registration order,
// which is also the order their results are merged before sorting.
func New(checkers []checker.Checker, opts ...Option) *Aggregator {
	a := &Aggregator{
		checkers:     checkers,
		checkTimeout: DefaultCheckTimeout,
		policy:       FailureAsError,
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// DefaultCheckers returns the username, email and phone checkers in that order.
func DefaultCheckers(opts ...checker.Option) []checker.Checker {
	return []checker.Checker{
		checker.NewUsernameChecker(opts...),
		checker.NewEmailChecker(opts...),
		checker.NewPhoneChecker(opts...),
	}
}

// PerformAnalysis runs every applicable checker concurrently and returns
// the merged run. Results are sorted by confidence, highest first; ties keep
// the order in which they were produced.
//
// A source that cannot be queried never makes PerformAnalysis fail. An error
// is returned only when orchestration itself fails (a checker panics or ctx
// is cancelled); the returned Run then has no results and its trace ends
// with a failure line.
func (a *Aggregator) PerformAnalysis(ctx context.Context, input model.AnalysisInput) (*model.Run, error) {
	started := a.clock()
	run := model.NewRun(input, started)
	in := run.Target

	run.Trace = append(run.Trace, traceInit, traceHashing)

	applicable := make([]checker.Checker, 0, len(a.checkers))
	for _, c := range a.checkers {
		if !c.Applicable(in) {
			continue
		}
		applicable = append(applicable, c)
		run.Trace = append(run.Trace, moduleTrace(c, in))
	}
	if in.FullName != "" {
		run.Trace = append(run.Trace, traceName)
	}

	a.logger.Debug("starting analysis",
		slog.String("target", in.Label()),
		slog.Int("checkers", len(applicable)),
	)

	slots := make([][]checker.Outcome, len(applicable))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range applicable {
		g.Go(func() error {
			outcomes, err := a.runChecker(gctx, c, in)
			if err != nil {
				return err
			}
			slots[i] = outcomes
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return a.fail(run, err)
	}

	probes := make([]checker.Probe, 0)
	for i, c := range applicable {
		for _, o := range slots[i] {
			probes = append(probes, o.Probes...)
			if res, ok := a.render(c, o); ok {
				run.Results = append(run.Results, res)
			}
		}
	}

	run.Trace = append(run.Trace, traceCorrelating, traceComputing)
	for _, p := range probes {
		run.Trace = append(run.Trace, p.String())
	}
	run.Trace = append(run.Trace, traceSignals)

	sort.SliceStable(run.Results, func(i, j int) bool {
		return run.Results[i].Confidence > run.Results[j].Confidence
	})

	run.Elapsed = a.clock().Sub(started)
	a.logger.Debug("analysis complete",
		slog.Int("results", len(run.Results)),
		slog.Any("platforms", run.Platforms()),
		slog.Duration("elapsed", run.Elapsed),
	)
	return run, nil
}

// runChecker runs one checker under its own deadline. A checker that
// outlives the deadline plus a short grace period yields a single failed
// outcome. A panic or a cancelled parent context is returned as an error.
func (a *Aggregator) runChecker(ctx context.Context, c checker.Checker, in model.AnalysisInput) ([]checker.Outcome, error) {
	cctx, cancel := context.WithTimeout(ctx, a.checkTimeout)
	defer cancel()

	type result struct {
		outcomes []checker.Outcome
		err      error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %s: %v", ErrCheckerPanic, c.Name(), r)}
			}
		}()
		done <- result{outcomes: c.Check(cctx, in)}
	}()

	select {
	case res := <-done:
		return res.outcomes, res.err
	case <-cctx.Done():
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(cancelGrace)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.outcomes, res.err
	case <-timer.C:
		a.logger.Warn("checker timed out", slog.String("checker", c.Name()), slog.Duration("timeout", a.checkTimeout))
		return []checker.Outcome{{
			Kind:          checker.OutcomeFailed,
			Platform:      c.Name() + " checker",
			Reason:        fmt.Errorf("%w after %s", ErrCheckTimeout, a.checkTimeout),
			ReportAbsence: true,
		}}, nil
	}
}

// render turns an outcome into a PlatformResult. The boolean is false when
// the outcome produces no visible result.
func (a *Aggregator) render(c checker.Checker, o checker.Outcome) (model.PlatformResult, bool) {
	switch o.Kind {
	case checker.OutcomeFound:
		status := o.Status
		if status == "" {
			status = model.StatusFound
		}
		return scorer.NewPlatformResult(o.Platform, status, o.Signals,
			scorer.WithProfileURL(o.ProfileURL),
			scorer.WithSearchQuery(o.SearchQuery),
			scorer.WithRawCapture(o.RawCapture),
		), true

	case checker.OutcomeFailed:
		a.logger.Warn("source check failed",
			slog.String("checker", c.Name()),
			slog.String("platform", o.Platform),
			slog.Any("error", o.Reason),
		)
		if a.policy == FailureAsError {
			note := "check failed"
			if o.Reason != nil {
				note = o.Reason.Error()
			}
			return scorer.NewPlatformResult(o.Platform, model.StatusError, nil,
				scorer.WithSearchQuery(o.SearchQuery),
				scorer.WithNote(note),
			), true
		}
		fallthrough

	default:
		if !o.ReportAbsence {
			return model.PlatformResult{}, false
		}
		return scorer.NewPlatformResult(o.Platform, model.StatusMissing, nil,
			scorer.WithSearchQuery(o.SearchQuery),
		), true
	}
}

func (a *Aggregator) fail(run *model.Run, err error) (*model.Run, error) {
	a.logger.Error("analysis failed", slog.Any("error", err))
	run.Results = make([]model.PlatformResult, 0)
	run.Trace = append(run.Trace, traceFailure)
	run.Error = err.Error()
	run.Elapsed = a.clock().Sub(run.DateScanned)
	return run, fmt.Errorf("%w: %w", ErrOrchestration, err)
}

func moduleTrace(c checker.Checker, in model.AnalysisInput) string {
	switch c.Name() {
	case "username":
		return "> [MOD_USER] Analyzing username: " + in.Username
	case "email":
		return traceEmail
	case "phone":
		return tracePhone
	default:
		return fmt.Sprintf("> [MOD_%s] Running %s checks...", strings.ToUpper(c.Name()), c.Name())
	}
}
