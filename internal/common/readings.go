package common

import (
	"fmt"
	"os"

	"prepaid-billing-go/internal/billing"
	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// ReadingConfig is one row of a bulk DCC upload. Numbers are kept as
// strings so they reach decimal without a float round trip.
type ReadingConfig struct {
	ConsumerId string `yaml:"consumer_id"`
	Date       string `yaml:"date"`
	Reading    string `yaml:"reading"`
	MaxDemand  string `yaml:"max_demand"`
}

type ReadingsConfig struct {
	Readings []ReadingConfig `yaml:"readings"`
}

func LoadReadingBatch(readingsFile string) ([]billing.BatchReading, error) {
	readingsPath, err := resolvePath(readingsFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(readingsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", readingsFile, err)
	}
	return ParseReadingBatch(data)
}

// ParseReadingBatch decodes a YAML list of meter readings
func ParseReadingBatch(data []byte) ([]billing.BatchReading, error) {
	var config ReadingsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse readings: %w", err)
	}

	batch := make([]billing.BatchReading, 0, len(config.Readings))
	for i, rc := range config.Readings {
		if rc.ConsumerId == "" {
			return nil, fmt.Errorf("reading at index %d missing consumer_id", i)
		}
		if rc.Reading == "" {
			return nil, fmt.Errorf("reading at index %d missing reading", i)
		}
		date, err := models.ParseDate(rc.Date)
		if err != nil {
			return nil, fmt.Errorf("reading at index %d: %w", i, err)
		}
		reading, err := decimal.NewFromString(rc.Reading)
		if err != nil {
			return nil, fmt.Errorf("reading at index %d: invalid reading %q: %w", i, rc.Reading, err)
		}
		demand, err := ParseDecimalFlag("max_demand", rc.MaxDemand)
		if err != nil {
			return nil, fmt.Errorf("reading at index %d: %w", i, err)
		}
		batch = append(batch, billing.BatchReading{
			ConsumerId: rc.ConsumerId,
			Input: billing.DailyInput{
				Reading:   reading,
				MaxDemand: demand,
				Date:      date,
			},
		})
	}
	return batch, nil
}
