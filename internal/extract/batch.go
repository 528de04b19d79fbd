package extract

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/cache"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/forest-guardian/sentinel-prep/internal/table"
	"go.uber.org/zap"
)

// batch reduces one range, retrying failed attempts with exponential backoff.
func (p *Pipeline) batch(ctx context.Context, pts []points.Point, r points.Range) BatchResult {
	res := BatchResult{Range: r}

	var key string
	if p.Cache != nil {
		key = batchKey(p.CacheKey, points.Slice(pts, r))
		if rows, ok := p.Cache.Get(key); ok {
			res.Rows, res.Cached = rows, true
			return res
		}
	}

	wait := p.Backoff
	for {
		if err := ctx.Err(); err != nil {
			if res.Err == nil {
				res.Err = err
			}
			return res
		}
		res.Attempts++
		rows, err := p.attempt(ctx, pts, r)
		if err == nil {
			res.Rows, res.Err = rows, nil
			if p.Cache != nil {
				if err := p.Cache.Set(key, rows); err != nil {
					log.Warn("failed to cache batch", zap.Stringer("range", r), zap.Error(err))
				}
			}
			return res
		}
		res.Err = err
		if res.Attempts > p.Retries || !retryable(ctx, err) {
			return res
		}
		log.Warn("batch attempt failed",
			zap.Stringer("range", r),
			zap.Int("attempt", res.Attempts),
			zap.Duration("retryIn", wait),
			zap.Error(err))

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return res
		case <-t.C:
		}
		wait *= 2
	}
}

// batchKey covers the run parameters and the index and coordinates of every
// point in the batch.
func batchKey(runKey string, pts []points.Point) string {
	params := make([]any, 0, 1+3*len(pts))
	params = append(params, runKey)
	for _, pt := range pts {
		params = append(params, pt.Index, pt.Longitude, pt.Latitude)
	}
	return cache.Key(params...)
}

func (p *Pipeline) attempt(ctx context.Context, pts []points.Point, r points.Range) ([]table.Row, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Reducer.Reduce(ctx, points.Slice(pts, r))
}

// retryable is false once the run itself is cancelled and for answers that
// declare themselves permanent. Transport failures are always retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}
