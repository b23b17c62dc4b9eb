package billing

import (
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newLedgerEntry rounds to paise at the point of recording. Timestamp is
// stamped by the engine when the entry is written.
func newLedgerEntry(date time.Time, consumerId, description string, amount decimal.Decimal, kind models.LedgerEntryType, balanceAfter decimal.Decimal) models.LedgerEntry {
	return models.LedgerEntry{
		Id:           uuid.New().String(),
		Date:         date,
		ConsumerId:   consumerId,
		Description:  description,
		Amount:       amount.Round(2),
		Type:         kind,
		BalanceAfter: balanceAfter.Round(2),
	}
}
