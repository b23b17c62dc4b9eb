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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"prepaid-billing-go/internal/models"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	energyMode := getEnvString("BILLING_ENERGY_MODE", "slab")
	if energyMode != "slab" && energyMode != "flat" {
		return nil, fmt.Errorf("invalid BILLING_ENERGY_MODE: %q (want slab or flat)", energyMode)
	}

	recoveryDays := getEnvInt("BILLING_DEFAULT_RECOVERY_DAYS", 365)
	if recoveryDays <= 0 {
		return nil, fmt.Errorf("BILLING_DEFAULT_RECOVERY_DAYS must be positive, got %d", recoveryDays)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:                getEnvString("DATABASE_PATH", "billing.db"),
			MaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:        getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:     connMaxLifetime,
			ConnMaxIdleTime:     connMaxIdleTime,
			PingTimeout:         pingTimeout,
			CreateDemoConsumers: getEnvBool("CREATE_DEMO_CONSUMERS", false),
		},
		Billing: models.BillingConfig{
			EnergyMode:          energyMode,
			TariffsFile:         getEnvString("TARIFFS_FILE", "tariffs.yaml"),
			DefaultRecoveryDays: recoveryDays,
			BatchConcurrency:    getEnvInt("BILLING_BATCH_CONCURRENCY", 8),
		},
		Formance: models.FormanceConfig{
			Enabled:      getEnvBool("FORMANCE_ENABLED", false),
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "prepaid-billing"),
			Currency:     getEnvString("FORMANCE_CURRENCY", "INR"),
		},
		Scheduler: models.SchedulerConfig{
			SettlementSpec: getEnvString("SCHEDULER_SETTLEMENT_SPEC", "0 30 0 1 * *"),
			SnapshotSpec:   getEnvString("SCHEDULER_SNAPSHOT_SPEC", "0 0 1 * * *"),
			MetricsAddr:    getEnvString("METRICS_ADDR", ":9102"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
