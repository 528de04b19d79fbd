// Package extract reduces point batches concurrently and collects a report.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/cache"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/forest-guardian/sentinel-prep/internal/table"
	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize = 1000
	DefaultWorkers   = 8
)

// Reducer turns one batch of points into rows. It must honour ctx.
type Reducer interface {
	Reduce(ctx context.Context, pts []points.Point) ([]table.Row, error)
}

// BatchResult is the outcome of one batch: rows on success, Err on failure.
type BatchResult struct {
	Range    points.Range
	Rows     []table.Row
	Err      error
	Attempts int
	Cached   bool
}

func (b BatchResult) OK() bool { return b.Err == nil }

// Report holds every batch in completion order. A run that lost batches still
// returns the rows of the others; the lost ones are listed in Failed.
type Report struct {
	Rows    []table.Row
	Batches []BatchResult
	Failed  []BatchResult
}

func (r *Report) Failures() []table.Failure {
	out := make([]table.Failure, 0, len(r.Failed))
	for _, b := range r.Failed {
		out = append(out, table.Failure{Start: b.Range.Start, End: b.Range.End, Attempts: b.Attempts, Reason: b.Err.Error()})
	}
	return out
}

type Options struct {
	BatchSize int
	Workers   int
	// Retries is the number of extra attempts after a failed one.
	Retries int
	// Backoff is the wait before the first retry; it doubles on each further one.
	Backoff time.Duration
	// Timeout bounds a single attempt. Zero means no bound.
	Timeout time.Duration
	// FailFast stops the run at the first failed batch.
	FailFast bool
	// Cache, when set, keeps the rows of successful batches under CacheKey.
	Cache    cache.Store[[]table.Row]
	CacheKey string
	Silent   bool
}

type Pipeline struct {
	Reducer Reducer
	Options
}

func New(r Reducer, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	return &Pipeline{Reducer: r, Options: opts}
}

// Run partitions pts, reduces every batch on a bounded pool and concatenates
// the rows. Without FailFast, failed batches do not make Run fail.
func (p *Pipeline) Run(ctx context.Context, pts []points.Point) (*Report, error) {
	ranges, err := points.Partition(len(pts), p.BatchSize)
	if err != nil {
		return nil, err
	}
	log.Info("starting extraction",
		zap.Int("points", len(pts)),
		zap.Int("batches", len(ranges)),
		zap.Int("batchSize", p.BatchSize),
		zap.Int("workers", p.Workers))

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var bar *progressbar.ProgressBar
	if p.Silent {
		bar = progressbar.DefaultSilent(int64(len(ranges)), "Reducing batches")
	} else {
		bar = progressbar.Default(int64(len(ranges)), "Reducing batches")
	}

	results := make(chan BatchResult, len(ranges))
	wp := workerpool.New(p.Workers)
	for _, r := range ranges {
		wp.Submit(func() {
			results <- p.batch(ctx, pts, r)
		})
	}

	report := &Report{}
	var firstErr error
	for range ranges {
		res := <-results
		bar.Add(1)
		report.Batches = append(report.Batches, res)
		if res.OK() {
			attach(res.Rows, pts)
			report.Rows = append(report.Rows, res.Rows...)
			log.Debug("batch done", zap.Stringer("range", res.Range), zap.Int("rows", len(res.Rows)), zap.Bool("cached", res.Cached))
			continue
		}
		report.Failed = append(report.Failed, res)
		log.Error("batch failed", zap.Stringer("range", res.Range), zap.Int("attempts", res.Attempts), zap.Error(res.Err))
		if p.FailFast && firstErr == nil {
			firstErr = fmt.Errorf("batch %s: %w", res.Range, res.Err)
			cancel()
		}
	}
	wp.StopWait()
	bar.Finish()

	if firstErr != nil {
		return report, firstErr
	}
	if err := parent.Err(); err != nil {
		return report, err
	}
	log.Info("extraction finished",
		zap.Int("rows", len(report.Rows)),
		zap.Int("batches", len(report.Batches)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// attach copies the input attributes of each row's point onto the row.
func attach(rows []table.Row, pts []points.Point) {
	for i := range rows {
		if idx := rows[i].Index; idx >= 0 && idx < len(pts) {
			rows[i].Attributes = pts[idx].Attributes
		}
	}
}
