package cli

import (
	"context"

	"github.com/dmitrijs2005/cardvault/internal/common"
)

// Export writes a backup named args[0] to the configured sink.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("export <name>")
	}
	if !a.isUnlocked() {
		return common.ErrLocked
	}

	pass, err := GetSecret(a.out, "Backup passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	dst, err := a.wallet.BackupSink(ctx)
	if err != nil {
		return err
	}
	if err := a.wallet.ExportTo(ctx, a.session, dst, args[0], pass); err != nil {
		return err
	}
	a.println(okFmt("Backup written:"), args[0])
	return nil
}

// Import restores the backup named args[0] and reports skipped records.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("import <name>")
	}
	if !a.isUnlocked() {
		return common.ErrLocked
	}

	pass, err := GetSecret(a.out, "Backup passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	src, err := a.wallet.BackupSink(ctx)
	if err != nil {
		return err
	}
	res, err := a.wallet.ImportFrom(ctx, src, args[0], a.session, pass)
	if err != nil {
		return err
	}

	a.println(okFmt("Imported:"), res.Imported, " Skipped:", res.Skipped)
	for _, f := range res.Failures {
		a.println(warnFmt("  skipped"), f.ID, dimFmt(describe(f.Err)))
	}
	return nil
}
