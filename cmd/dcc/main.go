package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"
	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type dccRequest struct {
	consumerId  string
	input       billing.DailyInput
	meterChange bool
	newReading  string
	batchFile   string
}

func parseAndValidateFlags() (*dccRequest, error) {
	consumerFlag := flag.String("consumer", "", "Consumer id (required unless --file)")
	readingFlag := flag.String("reading", "", "Cumulative meter reading in kWh (required unless --file)")
	demandFlag := flag.String("demand", "0", "Maximum demand recorded for the day in kW")
	dateFlag := flag.String("date", "", "Reading date YYYY-MM-DD (default today)")
	meterChangeFlag := flag.Bool("meter-change", false, "Treat --reading as the old meter's final reading")
	newReadingFlag := flag.String("new-reading", "", "Initial reading of the replacement meter (with --meter-change)")
	fileFlag := flag.String("file", "", "YAML file of readings to bill in one batch")
	flag.Parse()

	if *fileFlag != "" {
		return &dccRequest{batchFile: *fileFlag}, nil
	}
	if *consumerFlag == "" || *readingFlag == "" {
		return nil, fmt.Errorf("required flags: --consumer and --reading (or --file)")
	}
	if *meterChangeFlag && *newReadingFlag == "" {
		return nil, fmt.Errorf("--meter-change requires --new-reading")
	}

	req := &dccRequest{
		consumerId:  *consumerFlag,
		meterChange: *meterChangeFlag,
		newReading:  *newReadingFlag,
	}
	var err error
	if req.input.Reading, err = common.ParseDecimalFlag("reading", *readingFlag); err != nil {
		return nil, err
	}
	if req.input.MaxDemand, err = common.ParseDecimalFlag("demand", *demandFlag); err != nil {
		return nil, err
	}
	if req.input.Date, err = common.ParseDateFlag(*dateFlag); err != nil {
		return nil, err
	}
	return req, nil
}

func printEntry(entry *models.DailyLogEntry) {
	fmt.Printf("\n┌─ %s  %s\n", entry.ConsumerId, entry.Date.Format(models.DateLayout))
	fmt.Printf("│  Units:         %s kWh (max demand %s kW)\n", entry.Units.String(), entry.MaxDemand.String())
	fmt.Printf("│  Energy:        %s (subsidy %s)\n", common.FormatAmount(entry.NetEnergy), common.FormatAmount(entry.Subsidy))
	fmt.Printf("│  Fixed:         %s\n", common.FormatAmount(entry.FixedCharge))
	fmt.Printf("│  Duty:          %s\n", common.FormatAmount(entry.Duty))
	fmt.Printf("│  Excess demand: %s\n", common.FormatAmount(entry.ExcessDemand))
	fmt.Printf("│  Installment:   %s\n", common.FormatAmount(entry.Installment))
	fmt.Printf("│  Total:         %s\n", common.FormatAmount(entry.Total))
	fmt.Printf("│  Wallet after:  %s\n", common.FormatAmount(entry.WalletAfter))
	common.PrintBoxSeparator(60)
	if len(entry.Remarks) == 0 {
		fmt.Printf("%s%s\n", common.BoxPrefix(true), "No remarks")
		return
	}
	for i, remark := range entry.Remarks {
		fmt.Printf("%s%s\n", common.BoxPrefix(i == len(entry.Remarks)-1), remark)
	}
}

func runBatch(ctx context.Context, engine *billing.Engine, file string) {
	readings, err := common.LoadReadingBatch(file)
	if err != nil {
		zap.L().Fatal("Failed to load readings", zap.String("file", file), zap.Error(err))
	}
	zap.L().Info("Billing reading batch", zap.String("file", file), zap.Int("readings", len(readings)))

	results, err := engine.RunDailyBatch(ctx, readings)
	if err != nil {
		zap.L().Error("Batch interrupted", zap.Error(err))
	}

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, fmt.Sprintf("%s@%s", r.ConsumerId, r.Date))
			zap.L().Warn("Reading rejected",
				zap.String("consumer_id", r.ConsumerId),
				zap.String("date", r.Date),
				zap.Error(r.Err))
			continue
		}
		printEntry(r.Entry)
	}

	summary := fmt.Sprintf("SUMMARY: %d of %d readings billed", len(results)-len(failed), len(results))
	if len(failed) > 0 {
		summary += fmt.Sprintf(" (rejected: %s)", strings.Join(failed, ", "))
	}
	common.PrintFooter(summary, common.WideWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
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

	common.PrintHeader("DAILY CHARGE CALCULATION", common.WideWidth)

	if req.batchFile != "" {
		runBatch(ctx, services.Engine, req.batchFile)
		return
	}

	var entry *models.DailyLogEntry
	if req.meterChange {
		var newReading decimal.Decimal
		if newReading, err = common.ParseDecimalFlag("new-reading", req.newReading); err != nil {
			zap.L().Fatal("Invalid arguments", zap.Error(err))
		}
		entry, err = services.Engine.ReplaceMeter(ctx, req.consumerId, billing.MeterChange{
			OldFinalReading:   req.input.Reading,
			MaxDemand:         req.input.MaxDemand,
			NewInitialReading: newReading,
			Date:              req.input.Date,
		})
	} else {
		entry, err = services.Engine.RunDaily(ctx, req.consumerId, req.input)
	}
	if err != nil {
		zap.L().Fatal("Daily charge failed",
			zap.String("consumer_id", req.consumerId),
			zap.Error(err))
	}

	printEntry(entry)
	common.PrintFooter(fmt.Sprintf("Billed %s for %s", common.FormatAmount(entry.Total), entry.ConsumerId), common.WideWidth)
}
