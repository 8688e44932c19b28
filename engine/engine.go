package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/cron"
	"github.com/xraph/dropout/cutoff"
	"github.com/xraph/dropout/ext"
	"github.com/xraph/dropout/id"
	mw "github.com/xraph/dropout/middleware"
	"github.com/xraph/dropout/reconcile"
	"github.com/xraph/dropout/store"
	"github.com/xraph/dropout/unitofwork"
)

const instrumentationName = "github.com/xraph/dropout"

// Engine runs the dropout job against a store.
type Engine struct {
	store      store.Store
	config     dropout.Config
	clock      dropout.Clock
	extensions *ext.Registry
	mws        []mw.Middleware
	chain      mw.Middleware
	cutoff     *cutoff.Resolver
	logger     *slog.Logger

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Extensions are registered after the logger option is applied.
	pendingExts []ext.Extension
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the run configuration.
func WithConfig(cfg dropout.Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithBatchSize sets the page size.
func WithBatchSize(n int) Option {
	return func(e *Engine) { e.config.BatchSize = n }
}

// WithPolicy sets whether a successful run is committed.
func WithPolicy(p dropout.Policy) Option {
	return func(e *Engine) { e.config.Policy = p }
}

// WithPageRate throttles the run to perSecond pages per second.
func WithPageRate(perSecond float64) Option {
	return func(e *Engine) { e.config.PageRate = perSecond }
}

// WithRunTimeout bounds each run. Zero means no deadline.
func WithRunTimeout(d time.Duration) Option {
	return func(e *Engine) { e.config.RunTimeout = d }
}

// WithName sets the job name used in logs, spans and audit events.
func WithName(name string) Option {
	return func(e *Engine) { e.config.Name = name }
}

// WithClock sets the source of the timestamp written to updated rows and
// activities.
func WithClock(c dropout.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger for the engine and its subsystems.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithExtension registers an extension with the engine.
func WithExtension(x ext.Extension) Option {
	return func(e *Engine) { e.pendingExts = append(e.pendingExts, x) }
}

// WithMiddleware adds middleware to the run chain. It runs inside the
// built-in middleware.
func WithMiddleware(m mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, m) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the run span.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for run metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New creates an Engine over s. It returns dropout.ErrNoStore when s is nil
// and an error wrapping dropout.ErrConfiguration for an invalid config.
func New(s store.Store, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, dropout.ErrNoStore
	}

	eng := &Engine{
		store:  s,
		config: dropout.DefaultConfig(),
		clock:  dropout.SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.config.Name == "" {
		eng.config.Name = dropout.DefaultJobName
	}
	if err := eng.config.Validate(); err != nil {
		return nil, err
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	for _, x := range eng.pendingExts {
		eng.extensions.Register(x)
	}
	eng.pendingExts = nil
	eng.cutoff = cutoff.NewResolver(cutoff.WithLogger(eng.logger))

	// Build tracing middleware (custom provider or global).
	tracingMw := mw.Tracing()
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	}

	// Build metrics middleware (custom provider or global).
	metricsMw := mw.Metrics()
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	}

	// Default stack: recover → tracing → metrics → logging → timeout.
	all := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(eng.config.RunTimeout, eng.logger),
	}
	all = append(all, eng.mws...)
	eng.chain = mw.Chain(all...)

	return eng, nil
}

// Config returns the effective run configuration.
func (e *Engine) Config() dropout.Config { return e.config }

// Extensions returns the extension registry.
func (e *Engine) Extensions() *ext.Registry { return e.extensions }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Run executes the job once with a fresh run id.
func (e *Engine) Run(ctx context.Context) (*dropout.Summary, error) {
	return e.RunWithID(ctx, id.NewRunID())
}

// RunWithID executes the job once. On error every write of the run has
// been rolled back and the summary is nil.
func (e *Engine) RunWithID(ctx context.Context, runID id.RunID) (*dropout.Summary, error) {
	run := &dropout.Run{
		ID:        runID,
		Name:      e.config.Name,
		BatchSize: e.config.BatchSize,
		Policy:    e.config.Policy,
		StartedAt: e.clock.Now(),
	}

	var summary *dropout.Summary
	err := e.chain(ctx, run, func(ctx context.Context) error {
		s, err := e.execute(ctx, run)
		summary = s
		return err
	})
	if err != nil {
		e.extensions.EmitRunFailed(ctx, run, err)
		return nil, err
	}

	e.extensions.EmitRunCompleted(ctx, run, summary)
	return summary, nil
}

// execute is the body of a run: one unit of work from cutoff to last page.
func (e *Engine) execute(ctx context.Context, run *dropout.Run) (*dropout.Summary, error) {
	start := time.Now()
	summary := &dropout.Summary{RunID: run.ID}

	coord := unitofwork.New(e.store,
		unitofwork.WithPolicy(e.config.Policy),
		unitofwork.WithLogger(e.logger),
	)

	out, err := coord.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		cut, err := e.cutoff.Resolve(ctx, tx)
		if err != nil {
			return err
		}
		summary.Cutoff = cut

		eligible, err := tx.CountEligible(ctx, cut)
		if err != nil {
			return dropout.NewRepositoryError("count eligible", err)
		}
		summary.Eligible = eligible

		e.logger.Info("enrollments to be dropped out",
			slog.String("run_id", run.ID.String()),
			slog.Time("cutoff", cut),
			slog.Int64("count", eligible),
		)
		e.extensions.EmitRunStarted(ctx, run, cut, eligible)

		proc := reconcile.New(tx,
			reconcile.WithBatchSize(e.config.BatchSize),
			reconcile.WithPageRate(e.config.PageRate),
			reconcile.WithLogger(e.logger),
			reconcile.WithPageFunc(func(ctx context.Context, r reconcile.PageResult) {
				e.extensions.EmitPageProcessed(ctx, run, r)
			}),
		)

		totals, err := proc.Run(ctx, cut, e.clock.Now())
		if err != nil {
			return err
		}
		summary.DroppedOut = totals.DroppedOut
		summary.Pages = totals.Pages

		if totals.Read != eligible {
			e.logger.Warn("paged rows differ from eligible count",
				slog.Int64("eligible", eligible),
				slog.Int64("read", totals.Read),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary.Committed = out.Committed
	summary.Finalize(time.Since(start))

	e.logger.Info("excluded from dropout",
		slog.String("run_id", run.ID.String()),
		slog.Int64("count", summary.ExcludedFromDropout),
	)
	e.logger.Info("final dropped out enrollments",
		slog.String("run_id", run.ID.String()),
		slog.Int64("count", summary.DroppedOut),
		slog.Int64("elapsed_ms", summary.ElapsedMs),
		slog.Bool("committed", summary.Committed),
	)
	return summary, nil
}

// Schedule returns a cron scheduler that runs the job on expr. The
// scheduler is not started.
func (e *Engine) Schedule(expr string, opts ...cron.SchedulerOption) (*cron.Scheduler, error) {
	base := []cron.SchedulerOption{
		cron.WithEmitter(e.extensions),
		cron.WithLogger(e.logger),
	}
	return cron.NewScheduler(expr, func(ctx context.Context, runID id.RunID) error {
		_, err := e.RunWithID(ctx, runID)
		return err
	}, append(base, opts...)...)
}

// Shutdown notifies extensions that the process is stopping.
func (e *Engine) Shutdown(ctx context.Context) {
	e.extensions.EmitShutdown(ctx)
}
