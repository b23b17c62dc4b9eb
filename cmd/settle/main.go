package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"
	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
)

func printRecord(r *models.SettlementRecord, isLast bool) {
	prefix := common.BoxPrefix(isLast)
	if r.Status == models.SettlementFailed {
		fmt.Printf("%s%-14s %-8s %s\n", prefix, r.ConsumerId, r.Status, r.Reason)
		return
	}
	fmt.Printf("%s%-14s %-8s units %s, shadow %s, deducted %s, adjustment %s, wallet %s, deficit %s\n",
		prefix,
		r.ConsumerId,
		r.Status,
		r.TotalUnits.String(),
		common.FormatAmount(r.ShadowBill),
		common.FormatAmount(r.AlreadyDeducted),
		common.FormatAmount(r.Adjustment),
		common.FormatAmount(r.WalletAfter),
		common.FormatAmount(r.DeficitAfter))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	consumerFlag := flag.String("consumer", "", "Settle a single consumer (default: all consumers)")
	monthFlag := flag.String("month", "", "Billing month YYYY-MM (default: previous month)")
	flag.Parse()

	month := models.PreviousMonth(time.Now().UTC())
	if *monthFlag != "" {
		parsed, err := models.ParseBillingMonth(*monthFlag)
		if err != nil {
			zap.L().Fatal("Invalid --month", zap.Error(err))
		}
		month = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader(fmt.Sprintf("MONTHLY SETTLEMENT %s", month), common.WideWidth)

	if *consumerFlag != "" {
		record, err := services.Engine.Settle(ctx, *consumerFlag, month)
		if err != nil {
			zap.L().Fatal("Settlement failed",
				zap.String("consumer_id", *consumerFlag),
				zap.String("month", month.String()),
				zap.Error(err))
		}
		printRecord(record, true)
		common.PrintFooter(fmt.Sprintf("Settlement %s", record.Status), common.WideWidth)
		return
	}

	results, err := services.Engine.SettleAll(ctx, month)
	if err != nil {
		zap.L().Error("Settlement run interrupted", zap.Error(err))
	}

	var settled, failed int
	for i, r := range results {
		if r.Err != nil {
			failed++
			zap.L().Warn("Settlement error", zap.String("consumer_id", r.ConsumerId), zap.Error(r.Err))
			continue
		}
		if r.Record.Status == models.SettlementFailed {
			failed++
		} else {
			settled++
		}
		printRecord(r.Record, i == len(results)-1)
	}

	common.PrintFooter(summarize(results, settled, failed), common.WideWidth)
}

func summarize(results []billing.SettlementResult, settled, failed int) string {
	if len(results) == 0 {
		return "SUMMARY: nothing to settle"
	}
	return fmt.Sprintf("SUMMARY: %d settled, %d failed of %d consumers", settled, failed, len(results))
}
