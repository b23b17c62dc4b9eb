package database

import (
	"context"
	"errors"
)

// Sentinel errors for database operations
var (
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrCorruptRow     = errors.New("stored value cannot be parsed")
)

// Money and energy columns are TEXT so decimals round-trip exactly.
const schema = `
	-- Consumers (current state)
	CREATE TABLE IF NOT EXISTS consumers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL,
		wallet_balance TEXT NOT NULL DEFAULT '0',
		arrear_balance TEXT NOT NULL DEFAULT '0',
		deficit_balance TEXT NOT NULL DEFAULT '0',
		load_kw TEXT NOT NULL DEFAULT '0',
		installment_daily TEXT NOT NULL DEFAULT '0',
		installment_recovery_days INTEGER NOT NULL DEFAULT 0,
		last_reading TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		negative_days INTEGER NOT NULL DEFAULT 0,
		last_bill_date TEXT,
		last_settlement_date TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_consumers_status ON consumers(status);
	CREATE INDEX IF NOT EXISTS idx_consumers_category ON consumers(category_id);

	-- Amendment log, append-only per consumer
	CREATE TABLE IF NOT EXISTS amendments (
		consumer_id TEXT NOT NULL REFERENCES consumers(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		details TEXT NOT NULL,
		PRIMARY KEY (consumer_id, seq)
	);

	-- Closed settlement months
	CREATE TABLE IF NOT EXISTS settled_months (
		consumer_id TEXT NOT NULL REFERENCES consumers(id) ON DELETE CASCADE,
		month TEXT NOT NULL,
		PRIMARY KEY (consumer_id, month)
	);

	-- Daily charge computations
	CREATE TABLE IF NOT EXISTS daily_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		consumer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		units TEXT NOT NULL,
		max_demand TEXT NOT NULL,
		gross_energy TEXT NOT NULL,
		subsidy TEXT NOT NULL,
		net_energy TEXT NOT NULL,
		fixed_charge TEXT NOT NULL,
		duty TEXT NOT NULL,
		excess_demand TEXT NOT NULL,
		installment TEXT NOT NULL,
		total TEXT NOT NULL,
		wallet_after TEXT NOT NULL,
		remarks TEXT NOT NULL DEFAULT '[]',
		meter_change BOOLEAN NOT NULL DEFAULT 0,
		energy_breakup TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_daily_logs_consumer_date ON daily_logs(consumer_id, date);

	-- Ledger (audit trail)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		date TEXT NOT NULL,
		consumer_id TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		deficit_delta TEXT NOT NULL DEFAULT '0',
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_consumer ON ledger_entries(consumer_id, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_date ON ledger_entries(date);

	-- Monthly settlements
	CREATE TABLE IF NOT EXISTS settlements (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		month TEXT NOT NULL,
		consumer_id TEXT NOT NULL,
		total_units TEXT NOT NULL,
		gross_energy TEXT NOT NULL,
		subsidy TEXT NOT NULL,
		net_energy TEXT NOT NULL,
		fixed_charge TEXT NOT NULL,
		duty TEXT NOT NULL,
		excess_demand TEXT NOT NULL,
		installments TEXT NOT NULL,
		shadow_bill TEXT NOT NULL,
		already_deducted TEXT NOT NULL,
		adjustment TEXT NOT NULL,
		wallet_after TEXT NOT NULL,
		deficit_after TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		settled_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_consumer_month ON settlements(consumer_id, month);
	`

func (s *Service) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
