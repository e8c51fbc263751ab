package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet"
	"github.com/dmitrijs2005/cardvault/internal/wallet/config"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
)

// App is the shell state: an open wallet and, once unlocked, a session.
type App struct {
	config  *config.Config
	wallet  *wallet.Wallet
	log     logging.Logger
	session *keys.Session
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	w, err := wallet.Open(ctx, c, log)
	if err != nil {
		return nil, err
	}
	return newApp(c, w, log, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, w *wallet.Wallet, log logging.Logger, in io.Reader, out io.Writer) *App {
	if log == nil {
		log = logging.Discard()
	}
	return &App{config: c, wallet: w, log: log.With("component", "cli"), reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and closes the wallet when it ends.
func (a *App) Run(ctx context.Context) error {
	defer a.wallet.Close()
	defer func() { a.session.Lock() }()

	a.log.Debug(ctx, "shell started", "database", a.config.DatabasePath)
	fmt.Fprintln(a.out, "cardvault (type 'help' for commands)")

	ok, err := a.wallet.IsInitialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, warnFmt("No vault yet, run 'init' to create one."))
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) isUnlocked() bool {
	return !a.session.Locked()
}

func (a *App) status() string {
	if a.isUnlocked() {
		return "(unlocked)"
	}
	return "(locked)"
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
