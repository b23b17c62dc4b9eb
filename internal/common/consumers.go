package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResolveConsumers retrieves consumers based on an optional id filter.
// If idFilter is provided, returns the single consumer with that id.
// If idFilter is empty, returns all consumers.
func ResolveConsumers(ctx context.Context, consumers store.ConsumerStore, idFilter string) ([]models.Consumer, error) {
	if idFilter != "" {
		zap.L().Info("Looking up consumer", zap.String("consumer_id", idFilter))
		c, err := consumers.GetConsumer(ctx, idFilter)
		if err != nil {
			return nil, fmt.Errorf("consumer not found: %w", err)
		}
		return []models.Consumer{*c}, nil
	}

	all, err := consumers.ListConsumers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumers: %w", err)
	}
	zap.L().Info("Retrieved consumers", zap.Int("count", len(all)))
	return all, nil
}

// DemoMigrations are the postpaid accounts opened by setup --demo
func DemoMigrations(date time.Time) []billing.MigrationParams {
	return []billing.MigrationParams{
		{
			OldAccount:      "KNO-001",
			Name:            "John Doe",
			Address:         "Bihar",
			CategoryId:      "DS-II",
			LoadKw:          decimal.NewFromInt(2),
			OldArrear:       decimal.NewFromInt(3000),
			SecurityDeposit: decimal.NewFromInt(1000),
			InitialReading:  decimal.NewFromInt(500),
			Date:            date,
		},
		{
			OldAccount:      "KNO-002",
			Name:            "Asha Traders",
			Address:         "Patna",
			CategoryId:      "NDS-I",
			LoadKw:          decimal.NewFromInt(5),
			OldArrear:       decimal.NewFromInt(800),
			SecurityDeposit: decimal.NewFromInt(2500),
			InitialReading:  decimal.NewFromInt(1200),
			Date:            date,
		},
	}
}

// SeedDemoConsumers migrates the demo accounts, skipping ones already present
func SeedDemoConsumers(ctx context.Context, engine *billing.Engine, date time.Time) (int, error) {
	created := 0
	for _, p := range DemoMigrations(date) {
		c, err := engine.Migrate(ctx, p)
		if errors.Is(err, store.ErrConsumerExists) {
			zap.L().Info("Demo consumer already exists", zap.String("consumer_id", billing.MigratedConsumerId(p.OldAccount)))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed %s: %w", p.OldAccount, err)
		}
		zap.L().Info("Seeded demo consumer",
			zap.String("consumer_id", c.Id),
			zap.String("name", c.Name))
		created++
	}
	return created, nil
}
