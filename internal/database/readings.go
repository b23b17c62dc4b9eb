package database

import (
	"context"
	"encoding/json"
	"fmt"

	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
)

func (s *Service) AppendReading(ctx context.Context, e models.DailyLogEntry) error {
	remarks, err := json.Marshal(nonNilRemarks(e.Remarks))
	if err != nil {
		return fmt.Errorf("failed to encode remarks: %w", err)
	}
	breakup, err := json.Marshal(e.EnergyBreakup)
	if err != nil {
		return fmt.Errorf("failed to encode energy breakup: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertDailyLog,
		e.ConsumerId, formatDate(e.Date), e.Units.String(), e.MaxDemand.String(),
		e.GrossEnergy.String(), e.Subsidy.String(), e.NetEnergy.String(), e.FixedCharge.String(),
		e.Duty.String(), e.ExcessDemand.String(), e.Installment.String(), e.Total.String(),
		e.WalletAfter.String(), string(remarks), e.MeterChange, string(breakup))
	if err != nil {
		zap.L().Error("Failed to insert daily log",
			zap.String("consumer_id", e.ConsumerId),
			zap.String("date", formatDate(e.Date)),
			zap.Error(err))
		return fmt.Errorf("failed to insert daily log: %w", err)
	}
	return nil
}

func (s *Service) QueryReadings(ctx context.Context, consumerId string, month models.BillingMonth) ([]models.DailyLogEntry, error) {
	start, end, err := month.Range()
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Querying daily logs",
		zap.String("consumer_id", consumerId),
		zap.String("month", month.String()))

	rows, err := s.db.QueryContext(ctx, queryGetDailyLogsForMonth, consumerId, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily logs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}()

	var logs []models.DailyLogEntry
	for rows.Next() {
		var e models.DailyLogEntry
		var date, units, maxDemand, gross, subsidy, net, fixed, duty, excess, inst, total, walletAfter string
		var remarks, breakup string
		if err := rows.Scan(&e.ConsumerId, &date, &units, &maxDemand, &gross, &subsidy, &net,
			&fixed, &duty, &excess, &inst, &total, &walletAfter, &remarks, &e.MeterChange, &breakup); err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}

		if e.Date, err = parseDate("daily_logs.date", date); err != nil {
			return nil, err
		}
		var cols decimalColumns
		e.Units = cols.parse("units", units)
		e.MaxDemand = cols.parse("max_demand", maxDemand)
		e.GrossEnergy = cols.parse("gross_energy", gross)
		e.Subsidy = cols.parse("subsidy", subsidy)
		e.NetEnergy = cols.parse("net_energy", net)
		e.FixedCharge = cols.parse("fixed_charge", fixed)
		e.Duty = cols.parse("duty", duty)
		e.ExcessDemand = cols.parse("excess_demand", excess)
		e.Installment = cols.parse("installment", inst)
		e.Total = cols.parse("total", total)
		e.WalletAfter = cols.parse("wallet_after", walletAfter)
		if cols.err != nil {
			return nil, cols.err
		}
		if err := json.Unmarshal([]byte(remarks), &e.Remarks); err != nil {
			return nil, fmt.Errorf("%w: remarks: %v", ErrCorruptRow, err)
		}
		if err := json.Unmarshal([]byte(breakup), &e.EnergyBreakup); err != nil {
			return nil, fmt.Errorf("%w: energy_breakup: %v", ErrCorruptRow, err)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily logs: %w", err)
	}
	return logs, nil
}

func nonNilRemarks(remarks []string) []string {
	if remarks == nil {
		return []string{}
	}
	return remarks
}
