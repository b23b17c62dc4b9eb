package database

import (
	"context"
	"errors"
	"fmt"

	"prepaid-billing-go/internal/models"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

func (s *Service) AppendLedgerEntry(ctx context.Context, e models.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, queryInsertLedgerEntry,
		e.Id, formatDate(e.Date), e.ConsumerId, e.Description, e.Amount.String(),
		string(e.Type), e.BalanceAfter.String(), e.DeficitDelta.String(), e.Timestamp.UTC().Format(timestampLayout))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			zap.L().Warn("Duplicate ledger entry, skipping", zap.String("id", e.Id))
			return fmt.Errorf("%w: ledger entry %s", ErrDuplicateEntry, e.Id)
		}
		zap.L().Error("Failed to insert ledger entry",
			zap.String("consumer_id", e.ConsumerId),
			zap.String("amount", e.Amount.String()),
			zap.Error(err))
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	zap.L().Debug("Ledger entry recorded",
		zap.String("id", e.Id),
		zap.String("consumer_id", e.ConsumerId),
		zap.String("type", string(e.Type)),
		zap.String("amount", e.Amount.String()))
	return nil
}

// GetLedgerHistory returns newest entries first. A non-positive limit
// returns everything.
func (s *Service) GetLedgerHistory(ctx context.Context, consumerId string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, queryGetLedgerHistory, consumerId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var date, amount, kind, balanceAfter, deficitDelta, timestamp string
		if err := rows.Scan(&e.Id, &date, &e.ConsumerId, &e.Description, &amount, &kind, &balanceAfter, &deficitDelta, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if e.Date, err = parseDate("ledger_entries.date", date); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTimestamp("ledger_entries.timestamp", timestamp); err != nil {
			return nil, err
		}
		var cols decimalColumns
		e.Amount = cols.parse("amount", amount)
		e.BalanceAfter = cols.parse("balance_after", balanceAfter)
		e.DeficitDelta = cols.parse("deficit_delta", deficitDelta)
		if cols.err != nil {
			return nil, cols.err
		}
		e.Type = models.LedgerEntryType(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
