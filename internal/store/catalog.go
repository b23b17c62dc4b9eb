package store

import (
	"context"
	"fmt"
	"sort"

	"prepaid-billing-go/internal/models"
)

// Compile-time check: *StaticTariffCatalog must satisfy TariffCatalog.
var _ TariffCatalog = (*StaticTariffCatalog)(nil)

// StaticTariffCatalog is an immutable, validated set of tariffs for a billing period.
type StaticTariffCatalog struct {
	tariffs map[string]models.Tariff
}

// NewStaticTariffCatalog validates every tariff and rejects duplicate categories.
func NewStaticTariffCatalog(tariffs []models.Tariff) (*StaticTariffCatalog, error) {
	byId := make(map[string]models.Tariff, len(tariffs))
	for i := range tariffs {
		t := tariffs[i]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byId[t.CategoryId]; dup {
			return nil, fmt.Errorf("duplicate tariff category %s", t.CategoryId)
		}
		t.Slabs = models.SortedSlabs(t.Slabs)
		byId[t.CategoryId] = t
	}
	return &StaticTariffCatalog{tariffs: byId}, nil
}

func (c *StaticTariffCatalog) GetTariff(_ context.Context, categoryId string) (*models.Tariff, error) {
	t, ok := c.tariffs[categoryId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTariffNotFound, categoryId)
	}
	t.Slabs = append([]models.Slab(nil), t.Slabs...)
	return &t, nil
}

// Categories returns the category ids in lexical order
func (c *StaticTariffCatalog) Categories() []string {
	ids := make([]string, 0, len(c.tariffs))
	for id := range c.tariffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
