package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/fatih/color"
)

var (
	okFmt   = color.New(color.FgGreen).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	errFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

// describe turns an error into a message for the user.
func describe(err error) string {
	var le *keys.LockoutError
	var ve *models.ValidationError

	switch {
	case errors.As(err, &le):
		return fmt.Sprintf("too many failed attempts, try again in %s", le.RetryAfter.Round(time.Second))
	case errors.As(err, &ve):
		parts := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return "invalid input: " + strings.Join(parts, "; ")
	case errors.Is(err, common.ErrUnauthorized):
		return "wrong PIN or passphrase"
	case errors.Is(err, common.ErrLocked):
		return "vault is locked, run 'unlock'"
	case errors.Is(err, common.ErrAlreadyInitialized):
		return "vault is already set up, run 'unlock'"
	case errors.Is(err, common.ErrNotFound):
		return "not found"
	case errors.Is(err, common.ErrIntegrity):
		return "stored data failed verification: " + err.Error()
	case errors.Is(err, common.ErrUnsupportedVersion):
		return "not a backup this version can read"
	}
	return err.Error()
}

func cardLine(c *models.Card) string {
	return fmt.Sprintf("%s  %-20s %s  %s/%s  %s", dimFmt(c.ID), c.Name, c.MaskedNumber(), c.ExpiryMonth, c.ExpiryYear, c.Type)
}
