package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"

	"go.uber.org/zap"
)

func printCatalog(ctx context.Context, services *common.Services) {
	categories := services.Tariffs.Categories()
	common.PrintHeader("TARIFF CATALOG", common.DefaultWidth)
	for i, id := range categories {
		tariff, err := services.Tariffs.GetTariff(ctx, id)
		if err != nil {
			zap.L().Error("Failed to read tariff", zap.String("category", id), zap.Error(err))
			continue
		}
		fmt.Printf("%s %-8s %-30s fixed %s, demand %s/kW, duty %s, %d slabs\n",
			common.BoxPrefix(i == len(categories)-1),
			tariff.CategoryId,
			tariff.Name,
			common.FormatAmount(tariff.FixedCharge),
			common.FormatAmount(tariff.DemandRate),
			tariff.DutyRate.String(),
			len(tariff.Slabs))
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	demoFlag := flag.Bool("demo", false, "Migrate the demo consumers (also enabled by CREATE_DEMO_CONSUMERS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	printCatalog(ctx, services)

	if *demoFlag || cfg.Database.CreateDemoConsumers {
		created, err := common.SeedDemoConsumers(ctx, services.Engine, time.Now().UTC())
		if err != nil {
			zap.L().Fatal("Failed to seed demo consumers", zap.Error(err))
		}
		zap.L().Info("Demo consumers ready", zap.Int("created", created))
	}

	common.PrintFooter("Setup complete", common.DefaultWidth)
}
