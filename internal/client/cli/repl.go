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

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a stub.
type execIface interface {
	isSignedIn() bool
	Connect(ctx context.Context) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Switch(ctx context.Context, args []string) error
	Accounts(ctx context.Context) error
	Import(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Done(ctx context.Context, args []string) error
	List(ctx context.Context, all bool) error
	Refresh(ctx context.Context) error
	Export(ctx context.Context, args []string) error
}

// runREPL reads commands line by line and dispatches them to a until EOF or
// "exit". Handler errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("dtodo %s> ", statusFn()))

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
			if a.isSignedIn() {
				printlnFn("Available commands: add <text>, done <id>, (l)ist, all, refresh, export [file], switch, accounts, logout, exit")
			} else {
				printlnFn("Available commands: connect, login <email>, switch <address|new>, accounts, import <hexkey>, exit")
			}

		case "connect":
			cmdErr = a.Connect(ctx)
		case "login":
			cmdErr = a.Login(ctx, args)
		case "logout", "disconnect":
			cmdErr = a.Logout(ctx)
		case "switch":
			cmdErr = a.Switch(ctx, args)
		case "accounts":
			cmdErr = a.Accounts(ctx)
		case "import":
			cmdErr = a.Import(ctx, args)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "done":
			cmdErr = a.Done(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx, false)
		case "all":
			cmdErr = a.List(ctx, true)
		case "refresh":
			cmdErr = a.Refresh(ctx)
		case "export":
			cmdErr = a.Export(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
