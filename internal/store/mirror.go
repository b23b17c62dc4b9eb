package store

import (
	"context"

	"prepaid-billing-go/internal/models"

	"go.uber.org/zap"
)

// MirroredLedger writes every entry to a primary recorder and then copies it
// to mirrors. Only primary failures are returned; mirror failures are logged
// and left for reconciliation.
type MirroredLedger struct {
	primary LedgerRecorder
	mirrors []LedgerRecorder
}

var _ LedgerRecorder = (*MirroredLedger)(nil)

func NewMirroredLedger(primary LedgerRecorder, mirrors ...LedgerRecorder) *MirroredLedger {
	return &MirroredLedger{primary: primary, mirrors: mirrors}
}

func (m *MirroredLedger) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) error {
	if err := m.primary.AppendLedgerEntry(ctx, entry); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.AppendLedgerEntry(ctx, entry); err != nil {
			zap.L().Warn("Failed to mirror ledger entry",
				zap.String("id", entry.Id),
				zap.String("consumer_id", entry.ConsumerId),
				zap.Error(err))
		}
	}
	return nil
}
