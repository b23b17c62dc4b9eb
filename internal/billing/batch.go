package billing

import (
	"context"
	"sort"

	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchReading is one meter reading in a bulk DCC upload
type BatchReading struct {
	ConsumerId string
	Input      DailyInput
}

// BatchResult pairs a reading with its outcome. Results keep input order.
type BatchResult struct {
	ConsumerId string
	Date       string
	Entry      *models.DailyLogEntry
	Err        error
}

// RunDailyBatch bills many readings. Each consumer's readings are applied
// in date order on one goroutine; consumers run concurrently up to the
// configured limit. A failed reading does not stop the others; the
// returned error is only set when ctx ends the batch early.
func (e *Engine) RunDailyBatch(ctx context.Context, readings []BatchReading) ([]BatchResult, error) {
	results := make([]BatchResult, len(readings))
	byConsumer := make(map[string][]int)
	var order []string
	for i, r := range readings {
		results[i] = BatchResult{ConsumerId: r.ConsumerId, Date: models.NormalizeDate(r.Input.Date).Format(models.DateLayout)}
		if _, ok := byConsumer[r.ConsumerId]; !ok {
			order = append(order, r.ConsumerId)
		}
		byConsumer[r.ConsumerId] = append(byConsumer[r.ConsumerId], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)
	for _, consumerId := range order {
		idx := byConsumer[consumerId]
		sort.SliceStable(idx, func(a, b int) bool {
			return readings[idx[a]].Input.Date.Before(readings[idx[b]].Input.Date)
		})
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Entry, results[i].Err = e.RunDaily(gctx, readings[i].ConsumerId, readings[i].Input)
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	zap.L().Info("Daily batch completed",
		zap.Int("readings", len(readings)),
		zap.Int("consumers", len(order)),
		zap.Int("failed", failed))
	return results, err
}

// SettlementResult is the outcome of closing a month for one consumer
type SettlementResult struct {
	ConsumerId string
	Record     *models.SettlementRecord
	Err        error
}

// SettleAll closes month for every consumer that has not settled it yet
func (e *Engine) SettleAll(ctx context.Context, month models.BillingMonth) ([]SettlementResult, error) {
	consumers, err := e.consumers.ListConsumers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SettlementResult, 0, len(consumers))
	for _, c := range consumers {
		if c.IsMonthSettled(month) {
			continue
		}
		results = append(results, SettlementResult{ConsumerId: c.Id})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)
	for i := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			results[i].Record, results[i].Err = e.Settle(gctx, results[i].ConsumerId, month)
			return nil
		})
	}
	err = g.Wait()

	zap.L().Info("Monthly settlement completed",
		zap.String("month", month.String()),
		zap.Int("consumers", len(results)))
	return results, err
}
