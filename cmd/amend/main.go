package main

import (
	"context"
	"flag"
	"fmt"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"

	"go.uber.org/zap"
)

func parseAndValidateFlags() (string, *billing.MasterDataChange, error) {
	consumerFlag := flag.String("consumer", "", "Consumer id (required)")
	loadFlag := flag.String("load", "", "New sanctioned load in kW")
	categoryFlag := flag.String("category", "", "New tariff category id")
	dateFlag := flag.String("date", "", "Effective date YYYY-MM-DD (default today)")
	flag.Parse()

	if *consumerFlag == "" {
		return "", nil, fmt.Errorf("--consumer is required")
	}
	if *loadFlag == "" && *categoryFlag == "" {
		return "", nil, fmt.Errorf("nothing to change: pass --load and/or --category")
	}

	change := &billing.MasterDataChange{CategoryId: *categoryFlag}
	if *loadFlag != "" {
		load, err := common.ParseDecimalFlag("load", *loadFlag)
		if err != nil {
			return "", nil, err
		}
		change.LoadKw = &load
	}
	date, err := common.ParseDateFlag(*dateFlag)
	if err != nil {
		return "", nil, err
	}
	change.Date = date
	return *consumerFlag, change, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	consumerId, change, err := parseAndValidateFlags()
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

	consumer, err := services.Engine.ChangeMasterData(ctx, consumerId, *change)
	if err != nil {
		zap.L().Fatal("Master data change failed",
			zap.String("consumer_id", consumerId),
			zap.Error(err))
	}

	common.PrintHeader("MASTER DATA", common.DefaultWidth)
	fmt.Printf("Consumer: %s (%s)\n", consumer.Id, consumer.Name)
	fmt.Printf("Category: %s\n", consumer.CategoryId)
	fmt.Printf("Load:     %s kW\n", consumer.LoadKw.String())
	common.PrintBoxSeparator(60)
	for i, a := range consumer.Amendments {
		fmt.Printf("%s%s  %-20s %s\n",
			common.BoxPrefix(i == len(consumer.Amendments)-1),
			a.Date.Format("2006-01-02"), a.Type, a.Details)
	}
	common.PrintFooter(fmt.Sprintf("%d amendments on record", len(consumer.Amendments)), common.DefaultWidth)
}
