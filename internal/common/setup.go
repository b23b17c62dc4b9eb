package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"prepaid-billing-go/internal/api"
	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/database"
	"prepaid-billing-go/internal/formance"
	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine; variables can come from the shell or the container
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService       *database.Service
	Tariffs         *store.StaticTariffCatalog
	FormanceService *formance.Service
	Engine          *billing.Engine
	Billing         *api.BillingService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, loads the tariff catalog and builds
// the billing engine. When Formance is enabled every ledger entry is also
// mirrored into the configured Formance ledger.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading tariff catalog", zap.String("file", cfg.Billing.TariffsFile))
	tariffs, err := LoadTariffCatalog(cfg.Billing.TariffsFile)
	if err != nil {
		dbService.Close()
		return nil, err
	}
	zap.L().Info("Tariff catalog loaded", zap.Strings("categories", tariffs.Categories()))

	var ledger store.LedgerRecorder = dbService
	var formanceService *formance.Service
	if cfg.Formance.Enabled {
		formanceService, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			dbService.Close()
			return nil, err
		}
		ledger = store.NewMirroredLedger(dbService, formanceService)
	}

	engine, err := billing.NewEngine(billing.EngineConfig{
		Consumers:           dbService,
		Tariffs:             tariffs,
		Readings:            dbService,
		Ledger:              ledger,
		Settlements:         dbService,
		Mode:                billing.EnergyMode(cfg.Billing.EnergyMode),
		DefaultRecoveryDays: cfg.Billing.DefaultRecoveryDays,
		BatchConcurrency:    cfg.Billing.BatchConcurrency,
	})
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to create billing engine: %w", err)
	}
	zap.L().Info("Billing engine ready",
		zap.String("energy_mode", string(engine.Mode())),
		zap.Bool("formance_mirror", formanceService != nil))

	return &Services{
		DbService:       dbService,
		Tariffs:         tariffs,
		FormanceService: formanceService,
		Engine:          engine,
		Billing:         api.NewBillingService(dbService),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service without the engine
// Useful for read-only operations like reporting balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.FormanceService != nil {
		cs.FormanceService.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
