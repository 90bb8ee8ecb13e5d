package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/footprint/internal/aggregator"
	"github.com/nao1215/footprint/internal/checker"
	"github.com/nao1215/footprint/internal/config"
	"github.com/nao1215/footprint/internal/database"
	"github.com/nao1215/footprint/internal/model"
	"github.com/nao1215/footprint/internal/report"
	"github.com/nao1215/footprint/internal/transport"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Analyze an identity across public platforms",
		Long: `Scan correlates the given identity fragments across public platforms.

At least one of --username, --email, --phone or --name is required.
Each platform gets a confidence score (0-100) and a risk level:
HIGH (70 and above), MEDIUM (40-69) or LOW (below 40).

Completed runs are stored in the history database unless --no-save is set.

Examples:
  # Analyze a username
  footprint scan --username octocat

  # Analyze an email address and a phone number together
  footprint scan --email user@example.com --phone 9876543210 --country-code +91

  # Reproducible simulated platforms
  footprint scan --username octocat --simulation deterministic

  # Route lookups through a SOCKS5 proxy and write a Markdown report
  footprint scan --username octocat --proxy 127.0.0.1:9050 --markdown -o report.md

  # Route lookups through an embedded Tor daemon
  footprint scan --email user@example.com --tor`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	// Identity flags
	cmd.Flags().StringP("username", "u", "", "Username or handle to analyze")
	cmd.Flags().StringP("email", "e", "", "Email address to analyze")
	cmd.Flags().StringP("name", "n", "", "Real name to analyze")
	cmd.Flags().StringP("phone", "p", "", "Phone number without country code")
	cmd.Flags().String("country-code", "", "Dialling prefix of the phone number (e.g., +91)")

	// Behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each outbound request")
	cmd.Flags().Duration("check-timeout", config.DefaultCheckTimeout,
		"Time budget of each source checker")
	cmd.Flags().String("simulation", string(checker.SimulationAlways),
		"Simulated platform mode: always or deterministic")
	cmd.Flags().String("failure-policy", string(aggregator.FailureAsError),
		"How failed source checks are reported: error or missing")
	cmd.Flags().Uint64("seed", 0,
		"Seed for simulated platforms (0 picks a time-based seed)")

	// Transport flags
	cmd.Flags().StringP("proxy", "x", "",
		"Route lookups through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Route lookups through an embedded Tor daemon")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Storage flags
	cmd.Flags().Bool("no-save", false, "Do not store the run in the history database")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .footprint in current or home directory, then XDG config)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig merges defaults, the configuration file and flags, in that
// order. Only flags that were set on the command line override the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if found := config.FindConfigFile(configPath); found != "" {
		f, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = found
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	var target model.AnalysisInput
	for name, dst := range map[string]*string{
		"username":     &target.Username,
		"email":        &target.Email,
		"name":         &target.FullName,
		"phone":        &target.PhoneNumber,
		"country-code": &target.CountryCode,
	} {
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}
	cfg.Target = target.Normalize()

	if err := applyDurationFlag(flags, "timeout", &cfg.Timeout); err != nil {
		return nil, err
	}
	if err := applyDurationFlag(flags, "check-timeout", &cfg.CheckTimeout); err != nil {
		return nil, err
	}
	if err := applyDurationFlag(flags, "tor-timeout", &cfg.TorStartupTimeout); err != nil {
		return nil, err
	}

	if flags.Changed("simulation") {
		mode, err := flags.GetString("simulation")
		if err != nil {
			return nil, err
		}
		cfg.Simulation = checker.SimulationMode(mode)
	}
	if flags.Changed("failure-policy") {
		raw, err := flags.GetString("failure-policy")
		if err != nil {
			return nil, err
		}
		if cfg.FailurePolicy, err = aggregator.ParseFailurePolicy(raw); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if flags.Changed("seed") {
		if cfg.Seed, err = flags.GetUint64("seed"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

func applyDurationFlag(flags *pflag.FlagSet, name string, dst *time.Duration) error {
	if !flags.Changed(name) {
		return nil
	}
	d, err := flags.GetDuration(name)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// runScan builds the transport, runs the analysis, then writes the report
// and stores the run.
func runScan(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"target", cfg.Target.Label(),
		"proxy", cfg.ProxyAddress != "",
		"tor", cfg.UseTor,
		"saveToDB", cfg.SaveToDB,
	)

	client, cleanup, err := newTransport(ctx, cfg, out, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	checkerOpts := append(cfg.CheckerOptions(),
		checker.WithHTTPClient(client.HTTPClient()),
		checker.WithLogger(logger),
	)
	agg := aggregator.New(
		aggregator.DefaultCheckers(checkerOpts...),
		aggregator.WithLogger(logger),
		aggregator.WithCheckTimeout(cfg.CheckTimeout),
		aggregator.WithFailurePolicy(cfg.FailurePolicy),
	)

	run, analysisErr := agg.PerformAnalysis(ctx, cfg.Target)
	if err := outputReport(cfg, out, run); err != nil {
		logger.Error("report failed", "error", err)
		if analysisErr == nil {
			return err
		}
	}
	if analysisErr != nil {
		return fmt.Errorf("analysis failed: %w", analysisErr)
	}

	if err := saveRun(ctx, cfg, run, logger); err != nil {
		logger.Error("failed to save run", "error", err)
	}
	return nil
}

// newTransport returns the HTTP transport for lookups: direct, an external
// SOCKS5 proxy, or an embedded Tor daemon. The returned cleanup function
// must always be called.
func newTransport(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) (*transport.Client, func(), error) {
	noop := func() {}
	opts := []transport.Option{
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithHeaders(cfg.Headers),
	}

	if cfg.UseTor {
		return startEmbeddedTor(ctx, cfg, out, logger, opts)
	}

	client, err := transport.NewClient(cfg.ProxyAddress, cfg.Timeout, opts...)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if cfg.ProxyAddress != "" {
		if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
			return nil, noop, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Error(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}
	return client, noop, nil
}

// startEmbeddedTor starts a Tor daemon with tornago and returns a client
// routed through it.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger, opts []transport.Option) (*transport.Client, func(), error) {
	fmt.Fprintln(out, "Starting embedded Tor daemon...")
	fmt.Fprintf(out, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, func() {}, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	cleanup := func() {
		logger.Info("stopping embedded Tor daemon...")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr(),
	)

	client, err := embedded.NewClient(cfg.Timeout, opts...)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != transport.ProxyStatusOK {
		cleanup()
		return nil, func() {}, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}
	return client, cleanup, nil
}

// outputReport writes the run in the configured format to the report file
// or to out.
func outputReport(cfg *config.Config, out io.Writer, run *model.Run) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports contain personal data, so only the owner may read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	_, err := newReportWriter(cfg, out).Write(run)
	return err
}

func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

// saveRun stores a successful run in the history database.
func saveRun(ctx context.Context, cfg *config.Config, run *model.Run, logger *slog.Logger) error {
	if !cfg.SaveToDB || run == nil || run.Error != "" {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		return err
	}
	logger.Info("run saved to database", "id", id, "target_key", run.TargetKey)
	return nil
}
