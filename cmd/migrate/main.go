package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"

	"go.uber.org/zap"
)

func parseAndValidateFlags() (*billing.MigrationParams, error) {
	accountFlag := flag.String("account", "", "Old postpaid account number (required)")
	nameFlag := flag.String("name", "", "Consumer name (required)")
	addressFlag := flag.String("address", "", "Premises address")
	categoryFlag := flag.String("category", "", "Tariff category id, e.g. DS-II (required)")
	loadFlag := flag.String("load", "", "Sanctioned load in kW (required)")
	arrearFlag := flag.String("arrear", "0", "Outstanding postpaid arrear")
	depositFlag := flag.String("deposit", "0", "Security deposit held")
	readingFlag := flag.String("reading", "", "Closing meter reading of the postpaid account (required)")
	recoveryFlag := flag.Int("recovery-days", 0, "Days over which a net arrear is recovered (default from config)")
	dateFlag := flag.String("date", "", "Migration date YYYY-MM-DD (default today)")
	flag.Parse()

	if *accountFlag == "" || *nameFlag == "" || *categoryFlag == "" || *loadFlag == "" || *readingFlag == "" {
		return nil, fmt.Errorf("required flags: --account, --name, --category, --load, --reading")
	}
	if len(strings.TrimSpace(*nameFlag)) < 2 {
		return nil, fmt.Errorf("name must be at least 2 characters")
	}

	params := &billing.MigrationParams{
		OldAccount:   strings.TrimSpace(*accountFlag),
		Name:         strings.TrimSpace(*nameFlag),
		Address:      *addressFlag,
		CategoryId:   *categoryFlag,
		RecoveryDays: *recoveryFlag,
	}

	var err error
	if params.Date, err = common.ParseDateFlag(*dateFlag); err != nil {
		return nil, err
	}
	if params.LoadKw, err = common.ParseDecimalFlag("load", *loadFlag); err != nil {
		return nil, err
	}
	if params.OldArrear, err = common.ParseDecimalFlag("arrear", *arrearFlag); err != nil {
		return nil, err
	}
	if params.SecurityDeposit, err = common.ParseDecimalFlag("deposit", *depositFlag); err != nil {
		return nil, err
	}
	if params.InitialReading, err = common.ParseDecimalFlag("reading", *readingFlag); err != nil {
		return nil, err
	}
	return params, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	params, err := parseAndValidateFlags()
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

	consumer, err := services.Engine.Migrate(ctx, *params)
	if err != nil {
		zap.L().Fatal("Migration failed",
			zap.String("account", params.OldAccount),
			zap.Error(err))
	}

	common.PrintHeader("MIGRATION COMPLETE", common.DefaultWidth)
	fmt.Printf("Consumer ID:       %s\n", consumer.Id)
	fmt.Printf("Name:              %s\n", consumer.Name)
	fmt.Printf("Category:          %s\n", consumer.CategoryId)
	fmt.Printf("Opening wallet:    %s\n", common.FormatAmount(consumer.WalletBalance))
	fmt.Printf("Arrear:            %s\n", common.FormatAmount(consumer.ArrearBalance))
	if consumer.Installment.RecoveryDays > 0 {
		fmt.Printf("Daily installment: %s over %d days\n",
			common.FormatAmount(consumer.Installment.Daily), consumer.Installment.RecoveryDays)
	}
	fmt.Printf("Initial reading:   %s\n", consumer.LastReading.String())
	common.PrintFooter("Next step: record daily readings with the dcc tool", common.DefaultWidth)
}
