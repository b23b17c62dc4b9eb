package database

import (
	"context"
	"fmt"

	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
)

func (s *Service) AppendSettlement(ctx context.Context, r models.SettlementRecord) error {
	_, err := s.db.ExecContext(ctx, queryInsertSettlement,
		r.Id, string(r.Month), r.ConsumerId, r.TotalUnits.String(), r.GrossEnergy.String(),
		r.Subsidy.String(), r.NetEnergy.String(), r.FixedCharge.String(), r.Duty.String(),
		r.ExcessDemand.String(), r.Installments.String(), r.ShadowBill.String(),
		r.AlreadyDeducted.String(), r.Adjustment.String(), r.WalletAfter.String(),
		r.DeficitAfter.String(), string(r.Status), r.Reason, r.SettledAt.UTC().Format(timestampLayout))
	if err != nil {
		zap.L().Error("Failed to insert settlement",
			zap.String("consumer_id", r.ConsumerId),
			zap.String("month", r.Month.String()),
			zap.Error(err))
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

func (s *Service) GetSettlements(ctx context.Context, consumerId string) ([]models.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryGetSettlements, consumerId)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var records []models.SettlementRecord
	for rows.Next() {
		var r models.SettlementRecord
		var month, status, settledAt string
		var units, gross, subsidy, net, fixed, duty, excess, inst, shadow, deducted, adj, walletAfter, deficitAfter string
		if err := rows.Scan(&r.Id, &month, &r.ConsumerId, &units, &gross, &subsidy, &net, &fixed,
			&duty, &excess, &inst, &shadow, &deducted, &adj, &walletAfter, &deficitAfter,
			&status, &r.Reason, &settledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}

		var cols decimalColumns
		r.TotalUnits = cols.parse("total_units", units)
		r.GrossEnergy = cols.parse("gross_energy", gross)
		r.Subsidy = cols.parse("subsidy", subsidy)
		r.NetEnergy = cols.parse("net_energy", net)
		r.FixedCharge = cols.parse("fixed_charge", fixed)
		r.Duty = cols.parse("duty", duty)
		r.ExcessDemand = cols.parse("excess_demand", excess)
		r.Installments = cols.parse("installments", inst)
		r.ShadowBill = cols.parse("shadow_bill", shadow)
		r.AlreadyDeducted = cols.parse("already_deducted", deducted)
		r.Adjustment = cols.parse("adjustment", adj)
		r.WalletAfter = cols.parse("wallet_after", walletAfter)
		r.DeficitAfter = cols.parse("deficit_after", deficitAfter)
		if cols.err != nil {
			return nil, cols.err
		}
		if r.SettledAt, err = parseTimestamp("settlements.settled_at", settledAt); err != nil {
			return nil, err
		}
		r.Month = models.BillingMonth(month)
		r.Status = models.SettlementStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}
	return records, nil
}
