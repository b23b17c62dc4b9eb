package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prepaid-billing-go/internal/metrics"
	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	dailyBillDescription      = "Daily DCC Bill"
	meterChangeoutDescription = "Meter Changeout Final Bill"
	defaultBatchConcurrency   = 8
)

// EngineConfig wires the engine to its collaborators
type EngineConfig struct {
	Consumers   store.ConsumerStore
	Tariffs     store.TariffCatalog
	Readings    store.ReadingLog
	Ledger      store.LedgerRecorder
	Settlements store.SettlementStore

	Mode                EnergyMode
	DefaultRecoveryDays int
	BatchConcurrency    int
	Clock               func() time.Time
}

// Engine applies billing operations against injected stores. Mutations of
// one consumer are serialized; different consumers proceed in parallel.
type Engine struct {
	consumers   store.ConsumerStore
	tariffs     store.TariffCatalog
	readings    store.ReadingLog
	ledger      store.LedgerRecorder
	settlements store.SettlementStore

	mode                EnergyMode
	defaultRecoveryDays int
	batchConcurrency    int
	clock               func() time.Time
	locks               *consumerLocks
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Consumers == nil || cfg.Tariffs == nil || cfg.Readings == nil || cfg.Ledger == nil || cfg.Settlements == nil {
		return nil, fmt.Errorf("billing engine requires consumer, tariff, reading, ledger and settlement stores")
	}
	mode := cfg.Mode
	switch mode {
	case "":
		mode = EnergyModeSlab
	case EnergyModeSlab, EnergyModeFlat:
	default:
		return nil, fmt.Errorf("unknown energy mode %q", mode)
	}
	recoveryDays := cfg.DefaultRecoveryDays
	if recoveryDays == 0 {
		recoveryDays = DefaultRecoveryDays
	}
	if recoveryDays < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecoveryDays, recoveryDays)
	}
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		consumers:           cfg.Consumers,
		tariffs:             cfg.Tariffs,
		readings:            cfg.Readings,
		ledger:              cfg.Ledger,
		settlements:         cfg.Settlements,
		mode:                mode,
		defaultRecoveryDays: recoveryDays,
		batchConcurrency:    concurrency,
		clock:               clock,
		locks:               newConsumerLocks(),
	}, nil
}

// Mode reports the configured daily energy pricing
func (e *Engine) Mode() EnergyMode {
	return e.mode
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) tariffFor(ctx context.Context, categoryId string) (*models.Tariff, error) {
	tariff, err := e.tariffs.GetTariff(ctx, categoryId)
	if err != nil {
		if errors.Is(err, store.ErrTariffNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTariff, categoryId)
		}
		return nil, fmt.Errorf("failed to look up tariff %s: %w", categoryId, err)
	}
	return tariff, nil
}

func (e *Engine) appendLedger(ctx context.Context, entry models.LedgerEntry) error {
	entry.Timestamp = e.now()
	if err := e.ledger.AppendLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record ledger entry for %s: %w", entry.ConsumerId, err)
	}
	return nil
}

// RunDaily bills one meter reading for consumerId
func (e *Engine) RunDaily(ctx context.Context, consumerId string, in DailyInput) (*models.DailyLogEntry, error) {
	start := time.Now()
	release := e.locks.lock(consumerId)
	defer release()

	entry, err := e.runDailyLocked(ctx, consumerId, in, nil)
	metrics.ObserveDailyRun(err, time.Since(start))
	return entry, err
}

// MeterChange describes a meter replacement: the old meter's closing read
// and the new meter's starting read
type MeterChange struct {
	OldFinalReading   decimal.Decimal
	MaxDemand         decimal.Decimal
	NewInitialReading decimal.Decimal
	Date              time.Time
}

// ReplaceMeter bills the old meter's final day, then restarts the reading
// sequence from the new meter's initial reading.
func (e *Engine) ReplaceMeter(ctx context.Context, consumerId string, mc MeterChange) (*models.DailyLogEntry, error) {
	if mc.NewInitialReading.IsNegative() {
		return nil, fmt.Errorf("%w: new meter reading %s", ErrInvalidAmount, mc.NewInitialReading)
	}
	start := time.Now()
	release := e.locks.lock(consumerId)
	defer release()

	in := DailyInput{Reading: mc.OldFinalReading, MaxDemand: mc.MaxDemand, Date: mc.Date, MeterChange: true}
	entry, err := e.runDailyLocked(ctx, consumerId, in, func(c *models.Consumer) {
		c.AddAmendment(models.NormalizeDate(mc.Date), models.AmendmentMeterReplacement,
			fmt.Sprintf("Old meter final %s, new meter initial %s", mc.OldFinalReading, mc.NewInitialReading))
		c.LastReading = mc.NewInitialReading
	})
	metrics.ObserveDailyRun(err, time.Since(start))
	return entry, err
}

// runDailyLocked computes on a copy and persists reading, ledger line and
// consumer in that order. after runs on the copy before it is saved.
func (e *Engine) runDailyLocked(ctx context.Context, consumerId string, in DailyInput, after func(*models.Consumer)) (*models.DailyLogEntry, error) {
	current, err := e.consumers.GetConsumer(ctx, consumerId)
	if err != nil {
		return nil, err
	}
	tariff, err := e.tariffFor(ctx, current.CategoryId)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	entry, err := ComputeDailyCharge(updated, tariff, in, e.mode)
	if err != nil {
		zap.L().Warn("Daily charge rejected",
			zap.String("consumer_id", consumerId),
			zap.String("reading", in.Reading.String()),
			zap.Error(err))
		return nil, err
	}
	if after != nil {
		after(updated)
	}

	if err := e.readings.AppendReading(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to store daily log for %s: %w", consumerId, err)
	}
	description := dailyBillDescription
	if in.MeterChange {
		description = meterChangeoutDescription
	}
	ledgerEntry := newLedgerEntry(entry.Date, consumerId, description, entry.Total.Neg(), models.LedgerDebit, updated.WalletBalance)
	if err := e.appendLedger(ctx, ledgerEntry); err != nil {
		return nil, err
	}
	if err := e.consumers.SaveConsumer(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumerId, err)
	}

	if current.Status == models.StatusActive && updated.Status == models.StatusDisconnected {
		metrics.IncDisconnection()
		zap.L().Warn("Consumer disconnected",
			zap.String("consumer_id", consumerId),
			zap.String("wallet", updated.WalletBalance.StringFixed(2)),
			zap.Int("negative_days", updated.NegativeDays))
	}
	zap.L().Info("Daily charge applied",
		zap.String("consumer_id", consumerId),
		zap.String("date", entry.Date.Format(models.DateLayout)),
		zap.String("units", entry.Units.String()),
		zap.String("total", entry.Total.StringFixed(2)),
		zap.String("wallet", updated.WalletBalance.StringFixed(2)),
		zap.Bool("meter_change", in.MeterChange))
	return entry, nil
}

// MasterDataChange updates connection parameters. Zero values keep the current setting.
type MasterDataChange struct {
	LoadKw     *decimal.Decimal
	CategoryId string
	Date       time.Time
}

// ChangeMasterData amends load and/or category. Returns the saved consumer;
// nothing is written when the change is a no-op.
func (e *Engine) ChangeMasterData(ctx context.Context, consumerId string, change MasterDataChange) (*models.Consumer, error) {
	release := e.locks.lock(consumerId)
	defer release()

	current, err := e.consumers.GetConsumer(ctx, consumerId)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	date := models.NormalizeDate(change.Date)

	if change.LoadKw != nil && !change.LoadKw.Equal(current.LoadKw) {
		if change.LoadKw.IsNegative() {
			return nil, fmt.Errorf("%w: load %s", ErrInvalidAmount, change.LoadKw)
		}
		updated.LoadKw = *change.LoadKw
		updated.AddAmendment(date, models.AmendmentMasterData,
			fmt.Sprintf("Load: %s -> %s KW", current.LoadKw, change.LoadKw))
	}
	if change.CategoryId != "" && change.CategoryId != current.CategoryId {
		if _, err := e.tariffFor(ctx, change.CategoryId); err != nil {
			return nil, err
		}
		updated.CategoryId = change.CategoryId
		updated.AddAmendment(date, models.AmendmentMasterData,
			fmt.Sprintf("Category: %s -> %s", current.CategoryId, change.CategoryId))
	}

	if len(updated.Amendments) == len(current.Amendments) {
		return current, nil
	}
	if err := e.consumers.SaveConsumer(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumerId, err)
	}
	zap.L().Info("Master data changed",
		zap.String("consumer_id", consumerId),
		zap.String("category", updated.CategoryId),
		zap.String("load_kw", updated.LoadKw.String()))
	return updated, nil
}

// Recharge credits a prepaid top-up
func (e *Engine) Recharge(ctx context.Context, consumerId string, amount decimal.Decimal, date time.Time) (*RechargeOutcome, error) {
	release := e.locks.lock(consumerId)
	defer release()

	current, err := e.consumers.GetConsumer(ctx, consumerId)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	out, err := ApplyRecharge(updated, amount, date)
	if err != nil {
		return nil, err
	}
	for _, entry := range out.Entries {
		if err := e.appendLedger(ctx, entry); err != nil {
			return nil, err
		}
	}
	if err := e.consumers.SaveConsumer(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumerId, err)
	}

	metrics.IncPayment(metrics.PaymentRecharge)
	if out.Reconnected {
		metrics.IncReconnection()
	}
	zap.L().Info("Recharge applied",
		zap.String("consumer_id", consumerId),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("deficit_recovered", out.DeficitRecovered.StringFixed(2)),
		zap.String("wallet", updated.WalletBalance.StringFixed(2)),
		zap.Bool("reconnected", out.Reconnected))
	return out, nil
}

// PayArrear applies a lump-sum arrear payment. recoveryDays of zero keeps
// the consumer's current plan length, or the engine default when none.
func (e *Engine) PayArrear(ctx context.Context, consumerId string, amount decimal.Decimal, recoveryDays int, date time.Time) (*ArrearPaymentOutcome, error) {
	release := e.locks.lock(consumerId)
	defer release()

	current, err := e.consumers.GetConsumer(ctx, consumerId)
	if err != nil {
		return nil, err
	}
	if recoveryDays == 0 {
		recoveryDays = current.Installment.RecoveryDays
		if recoveryDays == 0 {
			recoveryDays = e.defaultRecoveryDays
		}
	}
	updated := current.Clone()
	out, err := ApplyArrearPayment(updated, amount, recoveryDays, date)
	if err != nil {
		return nil, err
	}
	if err := e.appendLedger(ctx, out.Entry); err != nil {
		return nil, err
	}
	if err := e.consumers.SaveConsumer(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumerId, err)
	}

	metrics.IncPayment(metrics.PaymentArrear)
	zap.L().Info("Arrear payment applied",
		zap.String("consumer_id", consumerId),
		zap.String("paid", out.Paid.StringFixed(2)),
		zap.String("arrear_remaining", out.Remaining.StringFixed(2)),
		zap.String("daily_installment", out.Installment.Daily.StringFixed(2)))
	return out, nil
}

// Migrate opens a prepaid account from postpaid balances
func (e *Engine) Migrate(ctx context.Context, p MigrationParams) (*models.Consumer, error) {
	if p.RecoveryDays == 0 {
		p.RecoveryDays = e.defaultRecoveryDays
	}
	if p.Date.IsZero() {
		p.Date = e.now()
	}
	if _, err := e.tariffFor(ctx, p.CategoryId); err != nil {
		return nil, err
	}
	consumer, opening, err := BuildMigratedConsumer(p)
	if err != nil {
		return nil, err
	}

	release := e.locks.lock(consumer.Id)
	defer release()

	if _, err := e.consumers.GetConsumer(ctx, consumer.Id); err == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrConsumerExists, consumer.Id)
	} else if !errors.Is(err, store.ErrConsumerNotFound) {
		return nil, err
	}
	if err := e.consumers.SaveConsumer(ctx, consumer); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumer.Id, err)
	}
	if opening != nil {
		if err := e.appendLedger(ctx, *opening); err != nil {
			return nil, err
		}
	}

	zap.L().Info("Consumer migrated",
		zap.String("consumer_id", consumer.Id),
		zap.String("category", consumer.CategoryId),
		zap.String("wallet", consumer.WalletBalance.StringFixed(2)),
		zap.String("arrear", consumer.ArrearBalance.StringFixed(2)),
		zap.String("daily_installment", consumer.Installment.Daily.StringFixed(2)))
	return consumer, nil
}

// Settle closes month for one consumer. FAILED records are persisted once
// per month and leave the month open.
func (e *Engine) Settle(ctx context.Context, consumerId string, month models.BillingMonth) (*models.SettlementRecord, error) {
	release := e.locks.lock(consumerId)
	defer release()

	current, err := e.consumers.GetConsumer(ctx, consumerId)
	if err != nil {
		return nil, err
	}
	if current.IsMonthSettled(month) {
		return nil, fmt.Errorf("%w: %s for %s", ErrMonthAlreadySettled, month, consumerId)
	}
	tariff, err := e.tariffFor(ctx, current.CategoryId)
	if err != nil {
		return nil, err
	}
	logs, err := e.readings.QueryReadings(ctx, consumerId, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily logs for %s: %w", consumerId, err)
	}

	updated := current.Clone()
	record, entry, err := ComputeSettlement(updated, tariff, month, logs, e.now())
	if err != nil {
		return nil, err
	}
	if record.Status == models.SettlementFailed {
		return e.recordFailedSettlement(ctx, record)
	}
	if err := e.settlements.AppendSettlement(ctx, *record); err != nil {
		return nil, fmt.Errorf("failed to store settlement for %s: %w", consumerId, err)
	}
	metrics.IncSettlement(string(record.Status))

	if entry != nil {
		if err := e.appendLedger(ctx, *entry); err != nil {
			return nil, err
		}
	}
	if err := e.consumers.SaveConsumer(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to save consumer %s: %w", consumerId, err)
	}

	zap.L().Info("Month settled",
		zap.String("consumer_id", consumerId),
		zap.String("month", month.String()),
		zap.String("shadow_bill", record.ShadowBill.StringFixed(2)),
		zap.String("already_deducted", record.AlreadyDeducted.StringFixed(2)),
		zap.String("adjustment", record.Adjustment.StringFixed(2)),
		zap.String("status", string(record.Status)))

	// Reconnection is only driven by a recharge, even when a refund lifted the wallet.
	if updated.Status == models.StatusDisconnected && !updated.WalletBalance.IsNegative() {
		zap.L().Warn("Consumer remains disconnected until next recharge",
			zap.String("consumer_id", consumerId),
			zap.String("wallet", updated.WalletBalance.StringFixed(2)))
	}
	return record, nil
}

// recordFailedSettlement stores a FAILED attempt once per month. Retries of
// a month that already has a FAILED record return the fresh record without
// persisting it again.
func (e *Engine) recordFailedSettlement(ctx context.Context, record *models.SettlementRecord) (*models.SettlementRecord, error) {
	previous, err := e.settlements.GetSettlements(ctx, record.ConsumerId)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlements for %s: %w", record.ConsumerId, err)
	}
	repeated := false
	for _, p := range previous {
		if p.Month == record.Month && p.Status == models.SettlementFailed {
			repeated = true
			break
		}
	}
	if !repeated {
		if err := e.settlements.AppendSettlement(ctx, *record); err != nil {
			return nil, fmt.Errorf("failed to store settlement for %s: %w", record.ConsumerId, err)
		}
		metrics.IncSettlement(string(record.Status))
	}

	zap.L().Warn("Settlement failed",
		zap.String("consumer_id", record.ConsumerId),
		zap.String("month", record.Month.String()),
		zap.String("reason", record.Reason),
		zap.Bool("already_recorded", repeated))
	return record, nil
}
