package reconcile

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/madhatv/payment-recovery/internal/model"
	"github.com/madhatv/payment-recovery/internal/repository"
)

const batchPageSize = 100

// BatchResult is the result of restoring one record in a batch.
type BatchResult struct {
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
	Error   string  `json:"error,omitempty"`
}

// RestoreAll restores every record in status, running up to workers
// restores at once.  The candidate ids are collected before any restore
// starts, so records rejected during the run are not picked up again.
// Failures are reported per record; the returned error is only set when
// the candidates could not be listed.
func (e *Engine) RestoreAll(ctx context.Context, status model.RestoreStatus, operator string, workers int) ([]BatchResult, error) {
	ids, err := e.collect(ctx, status)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]BatchResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			out, err := e.Restore(gctx, id, operator)
			results[i] = BatchResult{Outcome: out, Err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	restored := 0
	for _, r := range results {
		if r.Err == nil {
			restored++
		}
	}
	e.log.Info("batch restore finished", zap.String("status", string(status)),
		zap.Int("candidates", len(ids)), zap.Int("restored", restored))
	return results, nil
}

func (e *Engine) collect(ctx context.Context, status model.RestoreStatus) ([]string, error) {
	ids := make([]string, 0)
	for offset := 0; ; offset += batchPageSize {
		cctx, cancel := e.call(ctx)
		page, err := e.d.Payments.List(cctx, repository.FailedPaymentFilter{Status: status, Limit: batchPageSize, Offset: offset})
		cancel()
		if err != nil {
			return nil, &PersistenceError{Op: "list records", Err: err}
		}
		for _, rec := range page {
			ids = append(ids, rec.ID)
		}
		if len(page) < batchPageSize {
			return ids, nil
		}
	}
}
