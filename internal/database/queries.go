/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package database

const (
	// Consumer queries
	queryGetConsumer = `
		SELECT id, name, address, category_id, wallet_balance, arrear_balance, deficit_balance,
		       load_kw, installment_daily, installment_recovery_days, last_reading, status,
		       negative_days, last_bill_date, last_settlement_date
		FROM consumers
		WHERE id = ?`

	queryListConsumers = `
		SELECT id, name, address, category_id, wallet_balance, arrear_balance, deficit_balance,
		       load_kw, installment_daily, installment_recovery_days, last_reading, status,
		       negative_days, last_bill_date, last_settlement_date
		FROM consumers
		ORDER BY id`

	queryUpsertConsumer = `
		INSERT INTO consumers (id, name, address, category_id, wallet_balance, arrear_balance,
		                       deficit_balance, load_kw, installment_daily, installment_recovery_days,
		                       last_reading, status, negative_days, last_bill_date, last_settlement_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			category_id = excluded.category_id,
			wallet_balance = excluded.wallet_balance,
			arrear_balance = excluded.arrear_balance,
			deficit_balance = excluded.deficit_balance,
			load_kw = excluded.load_kw,
			installment_daily = excluded.installment_daily,
			installment_recovery_days = excluded.installment_recovery_days,
			last_reading = excluded.last_reading,
			status = excluded.status,
			negative_days = excluded.negative_days,
			last_bill_date = excluded.last_bill_date,
			last_settlement_date = excluded.last_settlement_date,
			updated_at = CURRENT_TIMESTAMP`

	// Amendment queries
	queryGetAmendments = `
		SELECT date, type, details
		FROM amendments
		WHERE consumer_id = ?
		ORDER BY seq`

	queryDeleteAmendments = `DELETE FROM amendments WHERE consumer_id = ?`

	queryInsertAmendment = `
		INSERT INTO amendments (consumer_id, seq, date, type, details)
		VALUES (?, ?, ?, ?, ?)`

	// Settled month queries
	queryGetSettledMonths = `
		SELECT month
		FROM settled_months
		WHERE consumer_id = ?
		ORDER BY month`

	queryDeleteSettledMonths = `DELETE FROM settled_months WHERE consumer_id = ?`

	queryInsertSettledMonth = `
		INSERT INTO settled_months (consumer_id, month) VALUES (?, ?)`

	// Daily log queries
	queryInsertDailyLog = `
		INSERT INTO daily_logs (consumer_id, date, units, max_demand, gross_energy, subsidy,
		                        net_energy, fixed_charge, duty, excess_demand, installment, total,
		                        wallet_after, remarks, meter_change, energy_breakup)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDailyLogsForMonth = `
		SELECT consumer_id, date, units, max_demand, gross_energy, subsidy, net_energy,
		       fixed_charge, duty, excess_demand, installment, total, wallet_after, remarks,
		       meter_change, energy_breakup
		FROM daily_logs
		WHERE consumer_id = ? AND date >= ? AND date < ?
		ORDER BY id`

	// Ledger queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, date, consumer_id, description, amount, type, balance_after, deficit_delta, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerHistory = `
		SELECT id, date, consumer_id, description, amount, type, balance_after, deficit_delta, timestamp
		FROM ledger_entries
		WHERE consumer_id = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?`

	// Settlement queries
	queryInsertSettlement = `
		INSERT INTO settlements (id, month, consumer_id, total_units, gross_energy, subsidy,
		                         net_energy, fixed_charge, duty, excess_demand, installments,
		                         shadow_bill, already_deducted, adjustment, wallet_after,
		                         deficit_after, status, reason, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetSettlements = `
		SELECT id, month, consumer_id, total_units, gross_energy, subsidy, net_energy,
		       fixed_charge, duty, excess_demand, installments, shadow_bill, already_deducted,
		       adjustment, wallet_after, deficit_after, status, reason, settled_at
		FROM settlements
		WHERE consumer_id = ?
		ORDER BY seq`
)
