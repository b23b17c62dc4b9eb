package formance

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		currency string
		want     string
	}{
		{"INR", "INR/2"},
		{"JPY", "JPY/0"},
		{"XYZ", "XYZ/2"}, // default precision
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.currency); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.currency, got, tt.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"30.24", "3024"},
		{"-30.24", "3024"},
		{"0.005", "1"},
		{"417", "41700"},
	}
	for _, tt := range tests {
		if got := minorUnits(decimal.RequireFromString(tt.amount), "INR"); got != tt.want {
			t.Errorf("minorUnits(%s) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	got := fromMinorUnits(big.NewInt(-12096), "INR")
	if !got.Equal(decimal.RequireFromString("-120.96")) {
		t.Errorf("expected -120.96, got %s", got)
	}
	if !fromMinorUnits(nil, "INR").IsZero() {
		t.Error("nil should return zero")
	}
}

func TestWalletAccount(t *testing.T) {
	if got := walletAccount("PRE-ACC-1001"); got != "consumers:PRE-ACC-1001:wallet" {
		t.Errorf("walletAccount = %q", got)
	}
	if got := walletAccount("PRE-12/B 3"); got != "consumers:PRE-12_B_3:wallet" {
		t.Errorf("walletAccount did not sanitize: %q", got)
	}
}

func TestDeficitAccount(t *testing.T) {
	if got := deficitAccount("PRE-12/B 3"); got != "consumers:PRE-12_B_3:deficit" {
		t.Errorf("deficitAccount = %q", got)
	}
}

func TestTransfersFor(t *testing.T) {
	entry := models.LedgerEntry{Id: "e1", ConsumerId: "C1", Date: time.Now(), Amount: decimal.RequireFromString("-30.24"), Type: models.LedgerDebit}
	got := transfersFor(entry)
	if len(got) != 1 || got[0].source != "consumers:C1:wallet" || got[0].destination != revenueAccount {
		t.Fatalf("unexpected DEBIT transfers: %+v", got)
	}
	if !got[0].amount.Equal(decimal.RequireFromString("30.24")) {
		t.Errorf("expected 30.24, got %s", got[0].amount)
	}

	entry.Type = models.LedgerCredit
	entry.Amount = decimal.NewFromInt(200)
	got = transfersFor(entry)
	if len(got) != 1 || got[0].source != worldAccount || got[0].destination != "consumers:C1:wallet" {
		t.Errorf("unexpected CREDIT transfers: %+v", got)
	}

	entry.Type = models.LedgerInfo
	if got := transfersFor(entry); len(got) != 0 {
		t.Errorf("INFO without deficit movement must not post: %+v", got)
	}

	entry.Type = models.LedgerDebit
	entry.Amount = decimal.Zero
	if got := transfersFor(entry); len(got) != 0 {
		t.Errorf("zero amounts must not post: %+v", got)
	}
}

// replay applies entries to account balances the way Formance would.
func replay(entries ...models.LedgerEntry) map[string]decimal.Decimal {
	balances := map[string]decimal.Decimal{}
	for _, e := range entries {
		for _, tr := range transfersFor(e) {
			balances[tr.source] = balances[tr.source].Sub(tr.amount)
			balances[tr.destination] = balances[tr.destination].Add(tr.amount)
		}
	}
	return balances
}

func TestTransfersMirrorDeficit(t *testing.T) {
	dec := decimal.RequireFromString
	wallet, deficit := walletAccount("C1"), deficitAccount("C1")

	tests := []struct {
		name        string
		entries     []models.LedgerEntry
		wantWallet  string
		wantDeficit string
	}{
		{
			name: "shortfall clears a positive wallet",
			entries: []models.LedgerEntry{
				{Id: "open", ConsumerId: "C1", Type: models.LedgerCredit, Amount: dec("50")},
				{Id: "trueup", ConsumerId: "C1", Type: models.LedgerDebit, Amount: dec("-100"), DeficitDelta: dec("50")},
			},
			wantWallet:  "0",
			wantDeficit: "50",
		},
		{
			name: "recharge recovers the deficit before the wallet",
			entries: []models.LedgerEntry{
				{Id: "open", ConsumerId: "C1", Type: models.LedgerCredit, Amount: dec("50")},
				{Id: "trueup", ConsumerId: "C1", Type: models.LedgerDebit, Amount: dec("-100"), DeficitDelta: dec("50")},
				{Id: "recovered", ConsumerId: "C1", Type: models.LedgerInfo, Amount: dec("50"), DeficitDelta: dec("-50")},
				{Id: "recharge", ConsumerId: "C1", Type: models.LedgerCredit, Amount: dec("30")},
			},
			wantWallet:  "30",
			wantDeficit: "0",
		},
		{
			name: "negative wallet folds into the deficit",
			entries: []models.LedgerEntry{
				{Id: "daily", ConsumerId: "C1", Type: models.LedgerDebit, Amount: dec("-20")},
				{Id: "trueup", ConsumerId: "C1", Type: models.LedgerDebit, Amount: dec("-100"), DeficitDelta: dec("120")},
			},
			wantWallet:  "0",
			wantDeficit: "120",
		},
		{
			name: "refund to a negative wallet",
			entries: []models.LedgerEntry{
				{Id: "daily", ConsumerId: "C1", Type: models.LedgerDebit, Amount: dec("-100")},
				{Id: "trueup", ConsumerId: "C1", Type: models.LedgerCredit, Amount: dec("47.96"), DeficitDelta: dec("52.04")},
			},
			wantWallet:  "0",
			wantDeficit: "52.04",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := replay(tt.entries...)
			if got := balances[wallet]; !got.Equal(dec(tt.wantWallet)) {
				t.Errorf("wallet = %s, want %s", got, tt.wantWallet)
			}
			// the deficit account runs negative while money is owed
			if got := balances[deficit].Neg(); !got.Equal(dec(tt.wantDeficit)) {
				t.Errorf("deficit = %s, want %s", got, tt.wantDeficit)
			}
		})
	}
}

func TestRenderScript(t *testing.T) {
	entry := models.LedgerEntry{
		Id: "e1", ConsumerId: "C1", Date: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Description: "Monthly True-Up (2025-05)", Type: models.LedgerDebit,
		Amount: decimal.RequireFromString("-100"), DeficitDelta: decimal.RequireFromString("50"),
	}
	script, vars := renderScript(entry, transfersFor(entry), "INR")

	if n := strings.Count(script, "send [$asset"); n != 2 {
		t.Errorf("expected 2 sends, got %d:\n%s", n, script)
	}
	if !strings.Contains(script, `set_tx_meta("event_type", "charge")`) {
		t.Errorf("missing event type:\n%s", script)
	}
	want := map[string]string{
		"asset":         "INR/2",
		"source_0":      "consumers:C1:wallet",
		"destination_0": "utility:revenue",
		"amount_0":      "10000",
		"source_1":      "consumers:C1:deficit",
		"destination_1": "consumers:C1:wallet",
		"amount_1":      "5000",
		"billing_date":  "2025-06-01",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("vars[%q] = %q, want %q", k, vars[k], v)
		}
	}

	recovery := models.LedgerEntry{Id: "e2", ConsumerId: "C1", Type: models.LedgerInfo,
		Amount: decimal.RequireFromString("50"), DeficitDelta: decimal.RequireFromString("-50")}
	script, _ = renderScript(recovery, transfersFor(recovery), "INR")
	if strings.Contains(script, "allowing unbounded overdraft") {
		t.Errorf("@world sources must not declare an overdraft:\n%s", script)
	}
	if !strings.Contains(script, `"deficit_recovery"`) {
		t.Errorf("missing recovery event type:\n%s", script)
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"INR/2": {Input: big.NewInt(20000), Output: big.NewInt(3024)},
	}
	if got := volumeBalance(vols, "INR/2"); got.Cmp(big.NewInt(16976)) != 0 {
		t.Errorf("expected 16976, got %s", got)
	}
	if volumeBalance(vols, "USD/2") != nil {
		t.Error("missing asset should return nil")
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
}
