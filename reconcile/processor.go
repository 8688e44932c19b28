package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/dropout"
	"github.com/xraph/dropout/activity"
	"github.com/xraph/dropout/enrollment"
	"github.com/xraph/dropout/exclusion"
)

// Source is everything a run reads and writes. store.Tx satisfies it.
type Source interface {
	enrollment.Store
	exclusion.Store
	activity.Store
}

// PageResult is the outcome of one page.
type PageResult struct {
	Number     int   `json:"number"`
	Read       int   `json:"read"`
	DroppedOut int   `json:"dropped_out"`
	Excluded   int   `json:"excluded"`
	LastID     int64 `json:"last_id"`
}

// Totals accumulates page results over a run.
type Totals struct {
	Pages      int   `json:"pages"`
	Read       int64 `json:"read"`
	DroppedOut int64 `json:"dropped_out"`
}

// PageFunc observes every processed page.
type PageFunc func(ctx context.Context, r PageResult)

// Processor applies the dropout decision to pages of enrollments.
type Processor struct {
	src       Source
	resolver  *exclusion.Resolver
	recorder  *activity.Recorder
	batchSize int
	limiter   *rate.Limiter
	onPage    PageFunc
	logger    *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithBatchSize sets the page size.
func WithBatchSize(n int) Option {
	return func(p *Processor) { p.batchSize = n }
}

// WithPageRate throttles page reads to perSecond pages per second.
// Zero or negative disables throttling.
func WithPageRate(perSecond float64) Option {
	return func(p *Processor) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			p.limiter = nil
		}
	}
}

// WithPageFunc registers a callback invoked after every page.
func WithPageFunc(fn PageFunc) Option {
	return func(p *Processor) { p.onPage = fn }
}

// WithLogger sets the logger for the processor.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// New returns a Processor bound to src, normally the run's transaction.
func New(src Source, opts ...Option) *Processor {
	p := &Processor{
		src:       src,
		batchSize: dropout.DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.resolver = exclusion.NewResolver(src)
	p.recorder = activity.NewRecorder(src, activity.WithLogger(p.logger))
	return p
}

// Run processes every eligible page for cutoff, stamping changes with now.
func (p *Processor) Run(ctx context.Context, cutoff, now time.Time) (Totals, error) {
	var totals Totals
	if p.batchSize <= 0 {
		return totals, fmt.Errorf("%w: got %d", dropout.ErrInvalidBatchSize, p.batchSize)
	}

	pager := enrollment.NewPager(p.src, cutoff, p.batchSize)
	for {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return totals, err
			}
		}

		page, ok, err := pager.Next(ctx)
		if err != nil {
			return totals, dropout.NewRepositoryError("page eligible", err)
		}
		if !ok {
			return totals, nil
		}

		res, err := p.ProcessPage(ctx, page, now)
		if err != nil {
			return totals, err
		}
		totals.Pages++
		totals.Read += int64(res.Read)
		totals.DroppedOut += int64(res.DroppedOut)

		if p.onPage != nil {
			p.onPage(ctx, res)
		}
	}
}

// ProcessPage decides, updates and audits one page.
func (p *Processor) ProcessPage(ctx context.Context, page enrollment.Page, now time.Time) (PageResult, error) {
	res := PageResult{Number: page.Number, Read: page.Len()}
	if page.Len() == 0 {
		return res, nil
	}
	res.LastID = page.Refs[page.Len()-1].ID

	// Captured before the update: rows are not re-read afterwards.
	pairs := make([]exclusion.Pair, 0, page.Len())
	studentOf := make(map[int64]int64, page.Len())
	for _, r := range page.Refs {
		pairs = append(pairs, exclusion.Pair{StudentID: r.StudentID, CourseID: r.CourseID})
		studentOf[r.ID] = r.StudentID
	}

	excluded, err := p.resolver.ExcludedStudents(ctx, pairs)
	if err != nil {
		return res, dropout.NewRepositoryError("excluded students", err)
	}

	dropoutIDs := make([]int64, 0, page.Len())
	for _, r := range page.Refs {
		if excluded.Has(r.StudentID, r.CourseID) {
			continue
		}
		dropoutIDs = append(dropoutIDs, r.ID)
	}
	res.Excluded = page.Len() - len(dropoutIDs)

	if len(dropoutIDs) == 0 {
		p.logger.Debug("page fully excluded",
			slog.Int("page", page.Number),
			slog.Int("read", res.Read),
		)
		return res, nil
	}

	updated, err := p.src.BulkSetDropout(ctx, dropoutIDs, now)
	if err != nil {
		return res, dropout.NewRepositoryError("bulk set dropout", err)
	}
	if updated != int64(len(dropoutIDs)) {
		return res, dropout.NewRepositoryError("bulk set dropout",
			fmt.Errorf("%w: updated %d of %d", dropout.ErrUpdateMismatch, updated, len(dropoutIDs)))
	}

	entries := make([]activity.Entry, len(dropoutIDs))
	for i, enrollmentID := range dropoutIDs {
		entries[i] = activity.Entry{
			ResourceID:  enrollmentID,
			UserID:      studentOf[enrollmentID],
			Description: activity.DescriptionCourseDropout,
			At:          now,
		}
	}
	if _, err := p.recorder.RecordBatch(ctx, entries); err != nil {
		return res, dropout.NewRepositoryError("record activities", err)
	}

	res.DroppedOut = len(dropoutIDs)
	p.logger.Debug("page processed",
		slog.Int("page", page.Number),
		slog.Int("read", res.Read),
		slog.Int("dropped_out", res.DroppedOut),
		slog.Int("excluded", res.Excluded),
		slog.Int64("last_id", res.LastID),
	)
	return res, nil
}
