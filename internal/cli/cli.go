// Package cli builds the dropout command line: run the job once, run it on
// a cron schedule, or apply the schema migrations.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/dropout"
	audithook "github.com/xraph/dropout/audit_hook"
	"github.com/xraph/dropout/backoff"
	"github.com/xraph/dropout/engine"
	"github.com/xraph/dropout/observability"
	"github.com/xraph/dropout/store"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configFile string
	envFile    string
	driver     string
	dsn        string
	logLevel   string
}

// BuildCLI returns the root command.
func BuildCLI() *cobra.Command {
	root := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "dropout",
		Short: "Move overdue enrollments to DROPOUT",
		Long: `dropout finds enrollments whose deadline has passed and moves them to
DROPOUT in one transaction, skipping students with an exam in progress or a
submission waiting for review in the same course. Every transition is
recorded as a COURSE_DROPOUT activity.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&root.configFile, "config", "c", "", "config file path (YAML)")
	pf.StringVar(&root.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	pf.StringVar(&root.driver, "driver", DriverPostgres, "store backend: postgres, bun or sqlite")
	pf.StringVar(&root.dsn, "dsn", "", "database connection string")
	pf.StringVar(&root.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(buildRunCommand(root))
	rootCmd.AddCommand(buildScheduleCommand(root))
	rootCmd.AddCommand(buildMigrateCommand(root))

	return rootCmd
}

// resolveConfig merges defaults, the config file, the environment and the
// flags the user set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, root *rootFlags) (*Config, error) {
	var envFiles []string
	if root.envFile != "" {
		envFiles = append(envFiles, root.envFile)
	}
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := loadConfig(root.configFile)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, fmt.Errorf("%w: %w", dropout.ErrConfiguration, err)
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Database.Driver = root.driver
	}
	if flags.Changed("dsn") {
		cfg.Database.DSN = root.dsn
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = root.logLevel
	}
	return cfg, nil
}

// session is everything a subcommand needs once the config is resolved.
type session struct {
	cfg    *Config
	logger *slog.Logger
	store  store.Store
	close  func() error
}

func openSession(ctx context.Context, cfg *Config, logOut io.Writer) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	st, closeFn, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	sess := &session{cfg: cfg, logger: logger, store: st, close: closeFn}

	err = backoff.Retry(ctx, backoff.DefaultStrategy(), cfg.Database.ConnectAttempts, st.Ping,
		func(attempt int, delay time.Duration, err error) {
			logger.Warn("database not reachable, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		},
	)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return sess, nil
}

func (s *session) Close() {
	if err := s.close(); err != nil {
		s.logger.Warn("close store", slog.String("error", err.Error()))
	}
}

// newEngine wires the engine with the audit and metrics extensions.
func (s *session) newEngine(reg prometheus.Registerer) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithConfig(s.cfg.JobConfig()),
		engine.WithLogger(s.logger),
		engine.WithExtension(observability.NewMetricsExtension(reg)),
	}
	if s.cfg.Audit.Enabled {
		var auditOpts []audithook.Option
		if len(s.cfg.Audit.Actions) > 0 {
			auditOpts = append(auditOpts, audithook.WithActions(s.cfg.Audit.Actions...))
		}
		auditOpts = append(auditOpts, audithook.WithLogger(s.logger))
		opts = append(opts, engine.WithExtension(
			audithook.New(audithook.LogRecorder(s.logger), auditOpts...),
		))
	}
	return engine.New(s.store, opts...)
}

// ──────────────────────────────────────────────────
// run
// ──────────────────────────────────────────────────

func buildRunCommand(root *rootFlags) *cobra.Command {
	var (
		batchSize int
		dryRun    bool
		pageRate  float64
		timeout   time.Duration
		migrate   bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dropout job once and print its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, root)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("batch-size") {
				cfg.Job.BatchSize = batchSize
			}
			if flags.Changed("dry-run") {
				cfg.Job.DryRun = dryRun
			}
			if flags.Changed("page-rate") {
				cfg.Job.PageRate = pageRate
			}
			if flags.Changed("timeout") {
				cfg.Job.RunTimeout = timeout
			}
			return runOnce(cmd.Context(), cfg, migrate, asJSON, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", dropout.DefaultBatchSize, "enrollments read per page")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "roll back after computing the summary")
	cmd.Flags().Float64Var(&pageRate, "page-rate", 0, "maximum pages per second (0 = unlimited)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort and roll back after this long (0 = none)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before running")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	return cmd
}

func runOnce(ctx context.Context, cfg *Config, migrate, asJSON bool, out, logOut io.Writer) error {
	sess, err := openSession(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer sess.Close()

	if migrate {
		if err := sess.store.Migrate(ctx); err != nil {
			return err
		}
	}

	eng, err := sess.newEngine(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer eng.Shutdown(context.WithoutCancel(ctx))

	summary, err := eng.Run(ctx)
	if err != nil {
		return err
	}
	return printSummary(out, summary, asJSON)
}

// printSummary writes the run counters as text lines or as one JSON
// object.
func printSummary(w io.Writer, s *dropout.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	mode := "committed"
	if !s.Committed {
		mode = "rolled back (dry run)"
	}
	_, err := fmt.Fprintf(w,
		"Run %s\n"+
			"Cutoff: %s\n"+
			"Enrollments to be dropped out: %d\n"+
			"Excluded from dropout: %d\n"+
			"Final dropped out enrollments: %d\n"+
			"Pages: %d\n"+
			"Elapsed: %dms\n"+
			"Transaction: %s\n",
		s.RunID, s.Cutoff.Format(time.RFC3339), s.Eligible, s.ExcludedFromDropout,
		s.DroppedOut, s.Pages, s.ElapsedMs, mode,
	)
	return err
}

// ──────────────────────────────────────────────────
// schedule
// ──────────────────────────────────────────────────

func buildScheduleCommand(root *rootFlags) *cobra.Command {
	var (
		expr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the dropout job on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("schedule") {
				cfg.Schedule.Expr = expr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Schedule.MetricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScheduled(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&expr, "schedule", "0 2 * * *", "cron expression (5 fields or a descriptor such as @daily)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runScheduled(ctx context.Context, cfg *Config, logOut io.Writer) error {
	sess, err := openSession(ctx, cfg, logOut)
	if err != nil {
		return err
	}
	defer sess.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := sess.newEngine(reg)
	if err != nil {
		return err
	}
	defer eng.Shutdown(context.WithoutCancel(ctx))

	sched, err := eng.Schedule(cfg.Schedule.Expr)
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Schedule.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{
			Addr:              cfg.Schedule.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			sess.logger.Info("metrics server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sess.logger.Error("metrics server", slog.String("error", err.Error()))
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sess.logger.Info("received shutdown signal, stopping")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return err
	}
	if srv != nil {
		if err := srv.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// migrate
// ──────────────────────────────────────────────────

func buildMigrateCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, root)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.store.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
