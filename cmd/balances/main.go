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


package main

import (
	"context"
	"flag"
	"fmt"

	"prepaid-billing-go/internal/api"
	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"
	"prepaid-billing-go/internal/formance"
	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalConsumers int
	disconnected   int
	inDeficit      int
	withArrear     int
}

func printConsumerHeader(s *models.ConsumerSummary) {
	fmt.Printf("\n┌─ Consumer: %s (%s)\n", s.Name, s.ConsumerId)
	fmt.Printf("│  Category: %s, load %s kW, status %s\n", s.CategoryId, s.LoadKw.String(), s.Status)
	fmt.Printf("│  Wallet: %s  Arrear: %s  Deficit: %s  Installment: %s/day\n",
		common.FormatAmount(s.WalletBalance),
		common.FormatAmount(s.ArrearBalance),
		common.FormatAmount(s.DeficitBalance),
		common.FormatAmount(s.DailyInstallment))
	fmt.Printf("│  Last reading %s, last bill %s, last settlement %s, negative days %d\n",
		s.LastReading.String(), common.FormatDate(s.LastBillDate), common.FormatDate(s.LastSettlementDate), s.NegativeDays)
	common.PrintBoxSeparator(78)
}

func printLedger(entries []models.LedgerEntry) {
	for i, e := range entries {
		fmt.Printf("%s%s %-6s %-40s %12s  bal %12s  (%s)\n",
			common.BoxPrefix(i == len(entries)-1),
			e.Date.Format(models.DateLayout),
			e.Type,
			e.Description,
			common.FormatAmount(e.Amount),
			common.FormatAmount(e.BalanceAfter),
			common.ShortId(e.Id))
	}
}

func reconcile(ctx context.Context, fs *formance.Service, s *models.ConsumerSummary) {
	wallet, err := fs.GetWalletBalance(ctx, s.ConsumerId)
	if err != nil {
		zap.L().Warn("Failed to read Formance wallet", zap.String("consumer_id", s.ConsumerId), zap.Error(err))
		return
	}
	deficit, err := fs.GetDeficitBalance(ctx, s.ConsumerId)
	if err != nil {
		zap.L().Warn("Failed to read Formance deficit", zap.String("consumer_id", s.ConsumerId), zap.Error(err))
		return
	}
	if !wallet.Equal(s.WalletBalance.Round(2)) || !deficit.Equal(s.DeficitBalance.Round(2)) {
		zap.L().Warn("Formance balances differ from billing",
			zap.String("consumer_id", s.ConsumerId),
			zap.String("billing_wallet", s.WalletBalance.StringFixed(2)),
			zap.String("formance_wallet", wallet.StringFixed(2)),
			zap.String("billing_deficit", s.DeficitBalance.StringFixed(2)),
			zap.String("formance_deficit", deficit.StringFixed(2)))
		return
	}
	fmt.Printf("│  Formance matches (wallet %s, deficit %s)\n",
		common.FormatAmount(wallet), common.FormatAmount(deficit))
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	consumerFlag := flag.String("consumer", "", "Filter by consumer id (optional)")
	historyFlag := flag.Int("history", 5, "Ledger entries to show per consumer (0 hides the ledger)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only: no tariff catalog or engine needed
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	var fs *formance.Service
	if cfg.Formance.Enabled {
		if fs, err = formance.NewService(ctx, cfg.Formance); err != nil {
			logger.Warn("Formance unavailable, skipping reconciliation", zap.Error(err))
			fs = nil
		}
	}

	consumers, err := common.ResolveConsumers(ctx, dbService, *consumerFlag)
	if err != nil {
		logger.Fatal("Failed to resolve consumers", zap.Error(err))
	}

	billingService := api.NewBillingService(dbService)
	common.PrintHeader("CONSUMER BALANCE REPORT", common.WideWidth)

	stats := balanceStats{}
	for _, c := range consumers {
		summary, err := billingService.GetConsumerSummary(ctx, c.Id)
		if err != nil {
			logger.Error("Failed to summarize consumer", zap.String("consumer_id", c.Id), zap.Error(err))
			continue
		}
		stats.totalConsumers++
		if summary.Status == models.StatusDisconnected {
			stats.disconnected++
		}
		if summary.DeficitBalance.IsPositive() {
			stats.inDeficit++
		}
		if summary.ArrearBalance.IsPositive() {
			stats.withArrear++
		}

		printConsumerHeader(summary)
		if fs != nil {
			reconcile(ctx, fs, summary)
		}
		if *historyFlag <= 0 {
			continue
		}
		entries, err := billingService.GetLedgerHistory(ctx, c.Id, *historyFlag, 0)
		if err != nil {
			logger.Error("Failed to read ledger", zap.String("consumer_id", c.Id), zap.Error(err))
			continue
		}
		printLedger(entries)
	}

	summary := fmt.Sprintf("SUMMARY: %d consumers, %d disconnected, %d in deficit, %d with arrears",
		stats.totalConsumers, stats.disconnected, stats.inDeficit, stats.withArrear)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Balance query completed",
		zap.Int("consumers", stats.totalConsumers),
		zap.Int("disconnected", stats.disconnected))
}
