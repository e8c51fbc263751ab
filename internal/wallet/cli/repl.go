package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App implements
// it; tests use a stub.
type execIface interface {
	isUnlocked() bool
	Init(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Count(ctx context.Context) error
	Pay(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit". A command error is printed and the loop goes
// on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("cardvault %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isUnlocked() {
				printlnFn("Available commands: add, (l)ist, show <id>, delete <id>, count, pay <id> <amount> [merchant], history <id>, export <name>, import <name>, lock, exit")
			} else {
				printlnFn("Available commands: init, unlock, exit")
			}
		case "init":
			cmdErr = a.Init(ctx)
		case "unlock":
			cmdErr = a.Unlock(ctx)
		case "lock":
			cmdErr = a.Lock(ctx)
		case "add":
			cmdErr = a.Add(ctx)
		case "l", "list":
			cmdErr = a.List(ctx)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "count":
			cmdErr = a.Count(ctx)
		case "pay":
			cmdErr = a.Pay(ctx, args)
		case "history":
			cmdErr = a.History(ctx, args)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "import":
			cmdErr = a.Import(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn(errFmt("Error:"), describe(cmdErr))
		}
	}
}
