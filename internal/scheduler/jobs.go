package scheduler

import (
	"context"
	"time"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/metrics"
	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Jobs holds the work run on a schedule by the billing daemon
type Jobs struct {
	engine    *billing.Engine
	consumers store.ConsumerStore
	clock     func() time.Time
	timeout   time.Duration
}

func NewJobs(engine *billing.Engine, consumers store.ConsumerStore, clock func() time.Time) *Jobs {
	if clock == nil {
		clock = time.Now
	}
	return &Jobs{engine: engine, consumers: consumers, clock: clock, timeout: 30 * time.Minute}
}

// SettlePreviousMonth runs the true-up for the month before the current one
func (j *Jobs) SettlePreviousMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	j.settle(ctx, models.PreviousMonth(j.clock().UTC()))
}

func (j *Jobs) settle(ctx context.Context, month models.BillingMonth) (settled, failed int) {
	zap.L().Info("Running scheduled settlement", zap.String("month", month.String()))

	results, err := j.engine.SettleAll(ctx, month)
	if err != nil {
		zap.L().Error("Scheduled settlement aborted", zap.String("month", month.String()), zap.Error(err))
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			zap.L().Warn("Settlement error",
				zap.String("consumer_id", r.ConsumerId),
				zap.Error(r.Err))
		case r.Record != nil && r.Record.Status == models.SettlementFailed:
			failed++
		default:
			settled++
		}
	}

	zap.L().Info("Scheduled settlement finished",
		zap.String("month", month.String()),
		zap.Int("settled", settled),
		zap.Int("failed", failed))
	return settled, failed
}

// TakeSnapshot publishes consumer counts per supply state and the total
// prepaid float
func (j *Jobs) TakeSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, _, err := j.snapshot(ctx); err != nil {
		zap.L().Error("Snapshot failed", zap.Error(err))
	}
}

func (j *Jobs) snapshot(ctx context.Context) (map[string]int, decimal.Decimal, error) {
	consumers, err := j.consumers.ListConsumers(ctx)
	if err != nil {
		return nil, decimal.Zero, err
	}

	byStatus := map[string]int{
		string(models.StatusActive):       0,
		string(models.StatusDisconnected): 0,
	}
	total := decimal.Zero
	for _, c := range consumers {
		byStatus[string(c.Status)]++
		total = total.Add(c.WalletBalance)
	}

	walletTotal, _ := total.Float64()
	metrics.SetConsumerSnapshot(byStatus, walletTotal)

	zap.L().Info("Consumer snapshot",
		zap.Int("active", byStatus[string(models.StatusActive)]),
		zap.Int("disconnected", byStatus[string(models.StatusDisconnected)]),
		zap.String("wallet_total", total.StringFixed(2)))
	return byStatus, total, nil
}
