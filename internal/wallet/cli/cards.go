package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

var errUsage = errors.New("usage")

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

// Add prompts for the card fields and stores the card.
func (a *App) Add(ctx context.Context) error {
	if !a.isUnlocked() {
		return common.ErrLocked
	}

	var in models.NewCard
	var err error

	if in.Name, err = a.ask("Card name"); err != nil {
		return err
	}
	if in.Number, err = a.ask("Card number"); err != nil {
		return err
	}
	in.Number = strings.ReplaceAll(in.Number, " ", "")

	expiry, err := a.ask("Expiry (MM/YY)")
	if err != nil {
		return err
	}
	in.ExpiryMonth, in.ExpiryYear, _ = strings.Cut(expiry, "/")

	cvv, err := GetSecret(a.out, "CVV")
	if err != nil {
		return err
	}
	in.CVV = string(cvv)
	common.WipeByteArray(cvv)

	typ, err := a.ask("Type (credit, debit, loyalty, membership)")
	if err != nil {
		return err
	}
	in.Type = models.CardType(strings.ToLower(typ))

	if in.Category, err = a.ask("Category (optional)"); err != nil {
		return err
	}
	if in.Color, err = a.ask("Color #RRGGBB (optional)"); err != nil {
		return err
	}

	id, err := a.wallet.Create(ctx, a.session, in)
	if err != nil {
		return err
	}
	a.println(okFmt("Card added:"), id)
	return nil
}

func (a *App) List(ctx context.Context) error {
	n := 0
	for c, err := range a.wallet.All(ctx, a.session) {
		if err != nil {
			return err
		}
		a.println(cardLine(c))
		n++
	}
	if n == 0 {
		a.println(dimFmt("no cards"))
	}
	return nil
}

// Show prints one card in full, including the number.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	c, err := a.wallet.Get(ctx, a.session, args[0])
	if err != nil {
		return err
	}

	a.println("Name:    ", c.Name)
	a.println("Number:  ", c.Number)
	a.println("Expiry:  ", c.Expiry())
	if c.CVV != "" {
		a.println("CVV:     ", c.CVV)
	}
	a.println("Type:    ", c.Type)
	if c.Category != "" {
		a.println("Category:", c.Category)
	}
	a.println("Color:   ", c.Color)
	a.println("Added:   ", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <id>")
	}
	if err := a.wallet.Delete(ctx, a.session, args[0]); err != nil {
		return err
	}
	a.println(okFmt("Deleted."))
	return nil
}

func (a *App) Count(ctx context.Context) error {
	n, err := a.wallet.Count(ctx, a.session)
	if err != nil {
		return err
	}
	a.println(n)
	return nil
}
