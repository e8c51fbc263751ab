package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/shopspring/decimal"
)

// Pay records a simulated NFC payment.
func (a *App) Pay(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("pay <id> <amount> [merchant]")
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return usage("amount must be a number like 12.50")
	}

	id, err := a.wallet.RecordTransaction(ctx, a.session, models.NewTransaction{
		CardID:   args[0],
		Amount:   amount,
		Merchant: strings.Join(args[2:], " "),
		Type:     models.TransactionNFC,
	})
	if err != nil {
		return err
	}
	a.println(okFmt("Payment recorded:"), id)
	return nil
}

func (a *App) History(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("history <id>")
	}
	txs, err := a.wallet.Transactions(ctx, a.session, args[0])
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		a.println(dimFmt("no payments"))
		return nil
	}
	for _, t := range txs {
		a.println(fmt.Sprintf("%s  %10s %s  %-9s %-6s %s",
			t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Amount.StringFixed(2), t.Currency, t.Status, t.Type, t.Merchant))
	}
	return nil
}
