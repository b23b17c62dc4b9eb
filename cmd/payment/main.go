package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paymentRecharge = "recharge"
	paymentArrear   = "arrear"
)

type paymentRequest struct {
	consumerId   string
	kind         string
	amount       decimal.Decimal
	recoveryDays int
	date         time.Time
}

func parseAndValidateFlags() (*paymentRequest, error) {
	consumerFlag := flag.String("consumer", "", "Consumer id (required)")
	amountFlag := flag.String("amount", "", "Amount paid (required)")
	typeFlag := flag.String("type", paymentRecharge, "Payment type: recharge or arrear")
	recoveryFlag := flag.Int("recovery-days", 0, "Arrear payments only: days to spread the remaining arrear over (default keeps the current plan)")
	dateFlag := flag.String("date", "", "Payment date YYYY-MM-DD (default today)")
	flag.Parse()

	if *consumerFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("required flags: --consumer, --amount")
	}
	if *typeFlag != paymentRecharge && *typeFlag != paymentArrear {
		return nil, fmt.Errorf("invalid --type %q (want %s or %s)", *typeFlag, paymentRecharge, paymentArrear)
	}

	amount, err := common.ParseDecimalFlag("amount", *amountFlag)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	date, err := common.ParseDateFlag(*dateFlag)
	if err != nil {
		return nil, err
	}

	return &paymentRequest{
		consumerId:   *consumerFlag,
		kind:         *typeFlag,
		amount:       amount,
		recoveryDays: *recoveryFlag,
		date:         date,
	}, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		zap.L().Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("PAYMENT", common.DefaultWidth)
	fmt.Printf("Consumer: %s\n", req.consumerId)
	fmt.Printf("Type:     %s\n", req.kind)
	fmt.Printf("Amount:   %s\n", common.FormatAmount(req.amount))

	if req.kind == paymentArrear {
		outcome, err := services.Engine.PayArrear(ctx, req.consumerId, req.amount, req.recoveryDays, req.date)
		if err != nil {
			zap.L().Fatal("Arrear payment failed", zap.String("consumer_id", req.consumerId), zap.Error(err))
		}
		fmt.Printf("Remaining arrear:  %s\n", common.FormatAmount(outcome.Remaining))
		fmt.Printf("Daily installment: %s over %d days\n",
			common.FormatAmount(outcome.Installment.Daily), outcome.Installment.RecoveryDays)
		common.PrintFooter("Arrear payment recorded", common.DefaultWidth)
		return
	}

	outcome, err := services.Engine.Recharge(ctx, req.consumerId, req.amount, req.date)
	if err != nil {
		zap.L().Fatal("Recharge failed", zap.String("consumer_id", req.consumerId), zap.Error(err))
	}
	if outcome.DeficitRecovered.IsPositive() {
		fmt.Printf("Deficit recovered: %s\n", common.FormatAmount(outcome.DeficitRecovered))
	}
	fmt.Printf("Wallet credited:   %s\n", common.FormatAmount(outcome.WalletCredited))
	for _, entry := range outcome.Entries {
		fmt.Printf("%s%-40s %s\n", common.BoxPrefix(false), entry.Description, common.FormatAmount(entry.BalanceAfter))
	}

	message := "Recharge recorded"
	switch {
	case outcome.Reconnected:
		message = "Recharge recorded, supply reconnected"
	case outcome.WarningReset:
		message = "Recharge recorded, negative balance warnings cleared"
	}
	common.PrintFooter(message, common.DefaultWidth)
}
