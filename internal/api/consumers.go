package api

import (
	"context"
	"errors"
	"fmt"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"go.uber.org/zap"
)

// ErrConsumerRequired is returned when a lookup has no consumer id
var ErrConsumerRequired = errors.New("consumer_id is required")

func summarize(c *models.Consumer) models.ConsumerSummary {
	return models.ConsumerSummary{
		ConsumerId:         c.Id,
		Name:               c.Name,
		CategoryId:         c.CategoryId,
		Status:             c.Status,
		WalletBalance:      c.WalletBalance,
		ArrearBalance:      c.ArrearBalance,
		DeficitBalance:     c.DeficitBalance,
		DailyInstallment:   c.Installment.Daily,
		LoadKw:             c.LoadKw,
		LastReading:        c.LastReading,
		NegativeDays:       c.NegativeDays,
		LastBillDate:       c.LastBillDate,
		LastSettlementDate: c.LastSettlementDate,
		Amendments:         len(c.Amendments),
	}
}

// GetConsumerSummary returns the current balances and supply state of a consumer
func (s *BillingService) GetConsumerSummary(ctx context.Context, consumerId string) (*models.ConsumerSummary, error) {
	if consumerId == "" {
		return nil, ErrConsumerRequired
	}

	c, err := s.store.GetConsumer(ctx, consumerId)
	if err != nil {
		if errors.Is(err, store.ErrConsumerNotFound) {
			return nil, err
		}
		zap.L().Error("Failed to get consumer", zap.String("consumer_id", consumerId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve consumer")
	}

	summary := summarize(c)
	return &summary, nil
}

// ListConsumerSummaries returns every consumer, ordered by id
func (s *BillingService) ListConsumerSummaries(ctx context.Context) ([]models.ConsumerSummary, error) {
	consumers, err := s.store.ListConsumers(ctx)
	if err != nil {
		zap.L().Error("Failed to list consumers", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve consumers")
	}

	result := make([]models.ConsumerSummary, len(consumers))
	for i := range consumers {
		result[i] = summarize(&consumers[i])
	}
	return result, nil
}

// GetLedgerHistory returns paginated ledger entries, newest first
func (s *BillingService) GetLedgerHistory(ctx context.Context, consumerId string, limit, offset int) ([]models.LedgerEntry, error) {
	if consumerId == "" {
		return nil, ErrConsumerRequired
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.store.GetLedgerHistory(ctx, consumerId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get ledger history",
			zap.String("consumer_id", consumerId),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve ledger history")
	}
	return entries, nil
}

// GetDailyLogs returns the daily charge computations of a month
func (s *BillingService) GetDailyLogs(ctx context.Context, consumerId string, month models.BillingMonth) ([]models.DailyLogEntry, error) {
	if consumerId == "" {
		return nil, ErrConsumerRequired
	}

	logs, err := s.store.QueryReadings(ctx, consumerId, month)
	if err != nil {
		zap.L().Error("Failed to get daily logs",
			zap.String("consumer_id", consumerId),
			zap.String("month", month.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve daily logs")
	}
	return logs, nil
}

// GetSettlements returns every settlement attempt for a consumer, oldest first
func (s *BillingService) GetSettlements(ctx context.Context, consumerId string) ([]models.SettlementRecord, error) {
	if consumerId == "" {
		return nil, ErrConsumerRequired
	}

	records, err := s.store.GetSettlements(ctx, consumerId)
	if err != nil {
		zap.L().Error("Failed to get settlements", zap.String("consumer_id", consumerId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve settlements")
	}
	return records, nil
}
