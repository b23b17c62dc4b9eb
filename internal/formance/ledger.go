package formance

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"prepaid-billing-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	worldAccount   = "world"
	revenueAccount = "utility:revenue"
)

// transfer is one movement between two ledger accounts. Amount is positive.
type transfer struct {
	source      string
	destination string
	amount      decimal.Decimal
}

// transfersFor maps a billing ledger entry onto account movements. Charges
// leave the wallet for @utility:revenue and credits arrive from @world. A
// deficit raised by the entry is drawn from the deficit account into the
// wallet, which leaves the wallet where billing left it. Recovered deficit
// is paid into the deficit account from @world.
func transfersFor(entry models.LedgerEntry) []transfer {
	wallet := walletAccount(entry.ConsumerId)
	deficit := deficitAccount(entry.ConsumerId)

	var out []transfer
	switch entry.Type {
	case models.LedgerDebit:
		if !entry.Amount.IsZero() {
			out = append(out, transfer{source: wallet, destination: revenueAccount, amount: entry.Amount.Abs()})
		}
	case models.LedgerCredit:
		if !entry.Amount.IsZero() {
			out = append(out, transfer{source: worldAccount, destination: wallet, amount: entry.Amount.Abs()})
		}
	case models.LedgerInfo:
		if entry.DeficitDelta.IsNegative() {
			out = append(out, transfer{source: worldAccount, destination: deficit, amount: entry.DeficitDelta.Abs()})
		}
		return out
	default:
		return nil
	}
	if entry.DeficitDelta.IsPositive() {
		out = append(out, transfer{source: deficit, destination: wallet, amount: entry.DeficitDelta})
	}
	return out
}

func eventType(kind models.LedgerEntryType) string {
	switch kind {
	case models.LedgerDebit:
		return "charge"
	case models.LedgerCredit:
		return "credit"
	default:
		return "deficit_recovery"
	}
}

// renderScript builds the Numscript and its variables for one entry. Every
// transfer becomes a send; consumer accounts may overdraw.
func renderScript(entry models.LedgerEntry, transfers []transfer, currency string) (string, map[string]string) {
	vars := map[string]string{
		"asset":        formanceAsset(currency),
		"consumer_id":  entry.ConsumerId,
		"description":  entry.Description,
		"entry_id":     entry.Id,
		"billing_date": entry.Date.Format(models.DateLayout),
	}

	var decl, body strings.Builder
	decl.WriteString("vars {\n  asset $asset\n  string $consumer_id\n  string $description\n  string $entry_id\n  string $billing_date\n")
	for i, t := range transfers {
		fmt.Fprintf(&decl, "  account $source_%d\n  account $destination_%d\n  number $amount_%d\n", i, i, i)
		vars[fmt.Sprintf("source_%d", i)] = t.source
		vars[fmt.Sprintf("destination_%d", i)] = t.destination
		vars[fmt.Sprintf("amount_%d", i)] = minorUnits(t.amount, currency)

		overdraft := " allowing unbounded overdraft"
		if t.source == worldAccount {
			overdraft = ""
		}
		fmt.Fprintf(&body, "\nsend [$asset $amount_%d] (\n  source = $source_%d%s\n  destination = $destination_%d\n)\n", i, i, overdraft, i)
	}
	decl.WriteString("}\n")

	fmt.Fprintf(&body, "\nset_tx_meta(\"event_type\", \"%s\")\n", eventType(entry.Type))
	body.WriteString(`set_tx_meta("consumer_id", $consumer_id)
set_tx_meta("description", $description)
set_tx_meta("entry_id", $entry_id)
set_tx_meta("billing_date", $billing_date)
`)
	return decl.String() + body.String(), vars
}

// AppendLedgerEntry posts an entry as one Formance transaction referenced
// by the entry id. Entries that move no money are skipped.
func (s *Service) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) error {
	transfers := transfersFor(entry)
	if len(transfers) == 0 {
		zap.L().Debug("Skipping non-monetary ledger entry",
			zap.String("id", entry.Id),
			zap.String("type", string(entry.Type)))
		return nil
	}

	script, vars := renderScript(entry, transfers, s.currency)
	postTx := shared.V2PostTransaction{
		Reference: strPtr(entry.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}
	if !entry.Timestamp.IsZero() {
		ts := entry.Timestamp
		postTx.Timestamp = &ts
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			return nil // idempotent
		}
		return fmt.Errorf("error posting ledger entry %s: %w", entry.Id, err)
	}

	zap.L().Info("Ledger entry posted to Formance",
		zap.String("consumer_id", entry.ConsumerId),
		zap.String("type", string(entry.Type)),
		zap.String("amount", entry.Amount.String()),
		zap.String("deficit_delta", entry.DeficitDelta.String()),
		zap.Int("transfers", len(transfers)),
		zap.String("entry_id", entry.Id))
	return nil
}

// GetWalletBalance reads a consumer's wallet balance from the Formance ledger.
func (s *Service) GetWalletBalance(ctx context.Context, consumerId string) (decimal.Decimal, error) {
	return s.accountBalance(ctx, walletAccount(consumerId))
}

// GetDeficitBalance reads the outstanding deficit mirrored for a consumer.
// The account runs negative, so the result is its negated balance.
func (s *Service) GetDeficitBalance(ctx context.Context, consumerId string) (decimal.Decimal, error) {
	balance, err := s.accountBalance(ctx, deficitAccount(consumerId))
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Neg(), nil
}

func (s *Service) accountBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("error getting account %s: %w", address, err)
	}
	raw := volumeBalance(resp.V2AccountResponse.Data.Volumes, formanceAsset(s.currency))
	return fromMinorUnits(raw, s.currency), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// fromMinorUnits converts a *big.Int in minor units to a decimal amount.
func fromMinorUnits(raw *big.Int, currency string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(currency)))
}
