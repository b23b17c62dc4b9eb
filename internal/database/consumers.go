package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsumer(row rowScanner) (*models.Consumer, error) {
	var c models.Consumer
	var wallet, arrear, deficit, load, daily, lastReading, status string
	var lastBillDate, lastSettlementDate sql.NullString
	err := row.Scan(&c.Id, &c.Name, &c.Address, &c.CategoryId, &wallet, &arrear, &deficit,
		&load, &daily, &c.Installment.RecoveryDays, &lastReading, &status,
		&c.NegativeDays, &lastBillDate, &lastSettlementDate)
	if err != nil {
		return nil, err
	}

	var cols decimalColumns
	c.WalletBalance = cols.parse("wallet_balance", wallet)
	c.ArrearBalance = cols.parse("arrear_balance", arrear)
	c.DeficitBalance = cols.parse("deficit_balance", deficit)
	c.LoadKw = cols.parse("load_kw", load)
	c.Installment.Daily = cols.parse("installment_daily", daily)
	c.LastReading = cols.parse("last_reading", lastReading)
	if cols.err != nil {
		return nil, cols.err
	}
	c.Status = models.ConsumerStatus(status)

	if c.LastBillDate, err = parseNullableDate("last_bill_date", lastBillDate); err != nil {
		return nil, err
	}
	if c.LastSettlementDate, err = parseNullableDate("last_settlement_date", lastSettlementDate); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) GetConsumer(ctx context.Context, consumerId string) (*models.Consumer, error) {
	zap.L().Debug("Querying consumer", zap.String("consumer_id", consumerId))

	c, err := scanConsumer(s.db.QueryRowContext(ctx, queryGetConsumer, consumerId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrConsumerNotFound, consumerId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer %s: %w", consumerId, err)
	}
	if err := s.loadChildren(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListConsumers(ctx context.Context) ([]models.Consumer, error) {
	rows, err := s.db.QueryContext(ctx, queryListConsumers)
	if err != nil {
		zap.L().Error("Failed to query consumers", zap.Error(err))
		return nil, fmt.Errorf("failed to list consumers: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var consumers []models.Consumer
	for rows.Next() {
		c, err := scanConsumer(rows)
		if err != nil {
			zap.L().Error("Failed to scan consumer row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan consumer: %w", err)
		}
		consumers = append(consumers, *c)
	}
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during consumer row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating consumers: %w", err)
	}

	// children are loaded after the cursor is closed so a single connection suffices
	for i := range consumers {
		if err := s.loadChildren(ctx, &consumers[i]); err != nil {
			return nil, err
		}
	}

	zap.L().Debug("Retrieved consumers", zap.Int("count", len(consumers)))
	return consumers, nil
}

func (s *Service) loadChildren(ctx context.Context, c *models.Consumer) error {
	rows, err := s.db.QueryContext(ctx, queryGetAmendments, c.Id)
	if err != nil {
		return fmt.Errorf("failed to query amendments for %s: %w", c.Id, err)
	}
	for rows.Next() {
		var a models.Amendment
		var date string
		if err := rows.Scan(&date, &a.Type, &a.Details); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan amendment: %w", err)
		}
		if a.Date, err = parseDate("amendments.date", date); err != nil {
			rows.Close()
			return err
		}
		c.Amendments = append(c.Amendments, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating amendments: %w", err)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, queryGetSettledMonths, c.Id)
	if err != nil {
		return fmt.Errorf("failed to query settled months for %s: %w", c.Id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var month string
		if err := rows.Scan(&month); err != nil {
			return fmt.Errorf("failed to scan settled month: %w", err)
		}
		c.SettledMonths = append(c.SettledMonths, models.BillingMonth(month))
	}
	return rows.Err()
}

// SaveConsumer overwrites the consumer row and its child tables in one
// transaction.
func (s *Service) SaveConsumer(ctx context.Context, c *models.Consumer) error {
	if c == nil || c.Id == "" {
		return fmt.Errorf("consumer id cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queryUpsertConsumer,
		c.Id, c.Name, c.Address, c.CategoryId,
		c.WalletBalance.String(), c.ArrearBalance.String(), c.DeficitBalance.String(),
		c.LoadKw.String(), c.Installment.Daily.String(), c.Installment.RecoveryDays,
		c.LastReading.String(), string(c.Status), c.NegativeDays,
		nullableDate(c.LastBillDate), nullableDate(c.LastSettlementDate))
	if err != nil {
		zap.L().Error("Failed to upsert consumer", zap.String("consumer_id", c.Id), zap.Error(err))
		return fmt.Errorf("failed to save consumer %s: %w", c.Id, err)
	}

	if _, err := tx.ExecContext(ctx, queryDeleteAmendments, c.Id); err != nil {
		return fmt.Errorf("failed to clear amendments: %w", err)
	}
	for i, a := range c.Amendments {
		if _, err := tx.ExecContext(ctx, queryInsertAmendment, c.Id, i, formatDate(a.Date), a.Type, a.Details); err != nil {
			return fmt.Errorf("failed to insert amendment: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, queryDeleteSettledMonths, c.Id); err != nil {
		return fmt.Errorf("failed to clear settled months: %w", err)
	}
	for _, m := range c.SettledMonths {
		if _, err := tx.ExecContext(ctx, queryInsertSettledMonth, c.Id, string(m)); err != nil {
			return fmt.Errorf("failed to insert settled month: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit consumer %s: %w", c.Id, err)
	}
	return nil
}
