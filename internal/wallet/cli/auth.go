package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/wallet"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
)

// Init sets up a new vault. The PIN is asked twice.
func (a *App) Init(ctx context.Context) error {
	pin, err := GetSecret(a.out, "Choose PIN")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	again, err := GetSecret(a.out, "Repeat PIN")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if string(pin) != string(again) {
		return errors.New("PINs do not match")
	}

	s, err := a.wallet.Initialize(ctx, pin)
	if err != nil {
		return err
	}
	a.session = s
	a.println(okFmt("Vault created and unlocked."))
	return nil
}

// Unlock asks for the PIN and opens a session. Key derivation runs off the
// REPL goroutine.
func (a *App) Unlock(ctx context.Context) error {
	pin, err := GetSecret(a.out, "PIN")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	a.println(dimFmt("unlocking..."))
	res := <-wallet.Async(ctx, func(ctx context.Context) (*keys.Session, error) {
		return a.wallet.Unlock(ctx, pin)
	})
	if res.Err != nil {
		return res.Err
	}

	a.session.Lock()
	a.session = res.Value
	a.println(okFmt("Unlocked."))
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	a.wallet.Lock(a.session)
	a.println(okFmt("Locked."))
	return nil
}
