package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Billing   BillingConfig
	Formance  FormanceConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path                string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	PingTimeout         time.Duration
	CreateDemoConsumers bool
}

// BillingConfig holds engine settings
type BillingConfig struct {
	EnergyMode          string // "slab" or "flat"
	TariffsFile         string
	DefaultRecoveryDays int
	BatchConcurrency    int
}

// FormanceConfig enables mirroring ledger entries into a Formance ledger
type FormanceConfig struct {
	Enabled      bool
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
	Currency     string
}

// SchedulerConfig holds cron specs for the billing daemon
type SchedulerConfig struct {
	SettlementSpec string
	SnapshotSpec   string
	MetricsAddr    string
}
