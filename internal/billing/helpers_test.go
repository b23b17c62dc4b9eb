package billing

import (
	"context"
	"testing"
	"time"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, got.Equal(d(want)), "expected %s, got %s %v", want, got, msgAndArgs)
}

func day(month time.Month, dayOfMonth int) time.Time {
	return time.Date(2025, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func domesticTariff() models.Tariff {
	return models.Tariff{
		CategoryId:  "DS-II",
		Name:        "Domestic",
		Slabs:       []models.Slab{models.BoundedSlab(50, 3.10), models.BoundedSlab(100, 3.60), models.OpenSlab(4.10)},
		FixedCharge: d("120"),
		DutyRate:    d("0.05"),
		DemandRate:  d("250"),
		SubsidyRate: decimal.Zero,
	}
}

func newTestConsumer(wallet string) *models.Consumer {
	return models.NewConsumer("C1", "Test Consumer", "1 Grid Road", "DS-II",
		d(wallet), decimal.Zero, d("2"), models.InstallmentPlan{Daily: decimal.Zero}, d("100"))
}

type testEnv struct {
	engine *Engine
	store  *store.MemoryStore
	now    time.Time
}

func newTestEnv(t *testing.T, mode EnergyMode, consumers ...*models.Consumer) *testEnv {
	t.Helper()
	catalog, err := store.NewStaticTariffCatalog([]models.Tariff{domesticTariff()})
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	env := &testEnv{store: mem, now: time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC)}
	engine, err := NewEngine(EngineConfig{
		Consumers:        mem,
		Tariffs:          catalog,
		Readings:         mem,
		Ledger:           mem,
		Settlements:      mem,
		Mode:             mode,
		BatchConcurrency: 4,
		Clock:            func() time.Time { return env.now },
	})
	require.NoError(t, err)
	env.engine = engine

	for _, c := range consumers {
		require.NoError(t, mem.SaveConsumer(context.Background(), c))
	}
	return env
}
