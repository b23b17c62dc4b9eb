package common

import (
	"fmt"
	"os"
	"path/filepath"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type SlabConfig struct {
	UpTo *float64 `yaml:"upto"` // omitted for the open-ended last band
	Rate float64  `yaml:"rate"`
}

type TariffConfig struct {
	CategoryId  string       `yaml:"cat_id"`
	Name        string       `yaml:"name"`
	FixedCharge float64      `yaml:"fixed_charge"`
	DemandRate  float64      `yaml:"demand_rate"`
	SubsidyRate float64      `yaml:"subsidy_rate"`
	DutyRate    float64      `yaml:"duty_rate"`
	Slabs       []SlabConfig `yaml:"slabs"`
}

type TariffsConfig struct {
	Tariffs []TariffConfig `yaml:"tariffs"`
}

func resolvePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, file), nil
}

func LoadTariffs(tariffsFile string) ([]models.Tariff, error) {
	tariffsPath, err := resolvePath(tariffsFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tariffsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tariffsFile, err)
	}

	return ParseTariffs(data)
}

// ParseTariffs decodes a YAML rate card document
func ParseTariffs(data []byte) ([]models.Tariff, error) {
	var config TariffsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse tariffs: %w", err)
	}
	if len(config.Tariffs) == 0 {
		return nil, fmt.Errorf("%w: no tariffs defined", models.ErrInvalidSlabTable)
	}

	tariffs := make([]models.Tariff, 0, len(config.Tariffs))
	for i, tc := range config.Tariffs {
		if tc.CategoryId == "" {
			return nil, fmt.Errorf("tariff at index %d missing cat_id", i)
		}
		tariff := models.Tariff{
			CategoryId:  tc.CategoryId,
			Name:        tc.Name,
			FixedCharge: decimal.NewFromFloat(tc.FixedCharge),
			DemandRate:  decimal.NewFromFloat(tc.DemandRate),
			SubsidyRate: decimal.NewFromFloat(tc.SubsidyRate),
			DutyRate:    decimal.NewFromFloat(tc.DutyRate),
		}
		for _, sc := range tc.Slabs {
			if sc.UpTo == nil {
				tariff.Slabs = append(tariff.Slabs, models.OpenSlab(sc.Rate))
				continue
			}
			tariff.Slabs = append(tariff.Slabs, models.BoundedSlab(*sc.UpTo, sc.Rate))
		}
		tariffs = append(tariffs, tariff)
	}

	return tariffs, nil
}

// LoadTariffCatalog reads and validates the rate card file
func LoadTariffCatalog(tariffsFile string) (*store.StaticTariffCatalog, error) {
	tariffs, err := LoadTariffs(tariffsFile)
	if err != nil {
		return nil, err
	}
	catalog, err := store.NewStaticTariffCatalog(tariffs)
	if err != nil {
		return nil, fmt.Errorf("invalid tariffs in %s: %w", tariffsFile, err)
	}
	return catalog, nil
}
