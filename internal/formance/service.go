package formance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerRecorder.
var _ store.LedgerRecorder = (*Service)(nil)

// currencyPrecision is the minor-unit precision of supported currencies.
var currencyPrecision = map[string]int{
	"INR": 2,
	"USD": 2,
	"EUR": 2,
	"JPY": 0,
}

const defaultPrecision = 2

// Service mirrors billing ledger entries into a Formance Stack ledger.
type Service struct {
	client   *v3.Formance
	ledger   string
	currency string
}

// NewService connects to the stack and creates the ledger if it doesn't already exist.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "prepaid-billing"
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName, currency: strings.ToUpper(cfg.Currency)}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance service initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

// ensureLedger creates the ledger if it does not already exist.
func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "prepaid-billing",
				"currency":    s.currency,
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// Close is a no-op for the Formance backend (HTTP client needs no teardown).
func (s *Service) Close() {}

// ---------- helpers ----------

func precisionFor(currency string) int {
	if p, ok := currencyPrecision[currency]; ok {
		return p
	}
	return defaultPrecision
}

// formanceAsset returns the Formance UMN notation, e.g. "INR/2".
func formanceAsset(currency string) string {
	return fmt.Sprintf("%s/%d", currency, precisionFor(currency))
}

// minorUnits converts an absolute amount to an integer string of minor units.
func minorUnits(amount decimal.Decimal, currency string) string {
	return amount.Abs().Shift(int32(precisionFor(currency))).Round(0).BigInt().String()
}

// walletAccount is the ledger account holding a consumer's prepaid balance.
func walletAccount(consumerId string) string {
	return "consumers:" + sanitizeSegment(consumerId) + ":wallet"
}

// deficitAccount carries the settlement shortfall a consumer still owes.
// It runs negative while a deficit is outstanding.
func deficitAccount(consumerId string) string {
	return "consumers:" + sanitizeSegment(consumerId) + ":deficit"
}

// sanitizeSegment maps characters Formance does not accept in account
// segments to underscores.
func sanitizeSegment(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func strPtr(s string) *string { return &s }
