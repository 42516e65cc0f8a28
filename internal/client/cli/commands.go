package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dtodo/internal/client/controller"
	"github.com/dmitrijs2005/dtodo/internal/client/models"
	"github.com/dmitrijs2005/dtodo/internal/client/utils"
)

var (
	ErrWalletOnly = errors.New("command requires the wallet identity scheme")
	ErrEmailOnly  = errors.New("command requires the email identity scheme")
)

// downloadToFile is a test seam.
var downloadToFile = utils.DownloadToFile

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// reportSignIn prints the outcome of a sign-in attempt that happened as a
// reaction to a provider event.
func (a *App) reportSignIn() error {
	state, id := a.controller.State()
	if state == controller.StateSignedIn {
		printlnFn("Signed in as", id)
		return nil
	}
	if err := a.controller.LastError(); err != nil {
		return err
	}
	return controller.ErrNotSignedIn
}

func (a *App) Connect(ctx context.Context) error {
	if err := a.controller.Connect(ctx); err != nil {
		return err
	}
	return a.reportSignIn()
}

func (a *App) Login(ctx context.Context, args []string) error {
	if a.session == nil {
		return ErrEmailOnly
	}
	email := strings.Join(args, " ")
	if email == "" {
		var err error
		if email, err = GetSimpleText(a.reader, "Email address", a.out); err != nil {
			return err
		}
	}
	if err := a.session.SignIn(ctx, email); err != nil {
		return err
	}
	return a.reportSignIn()
}

func (a *App) Logout(ctx context.Context) error {
	var err error
	switch {
	case a.wallet != nil:
		err = a.wallet.Disconnect(ctx)
	case a.session != nil:
		err = a.session.SignOut(ctx)
	}
	if err != nil {
		return err
	}
	printlnFn("Signed out")
	return nil
}

func (a *App) Switch(ctx context.Context, args []string) error {
	if a.wallet == nil {
		return ErrWalletOnly
	}
	if len(args) != 1 {
		printlnFn("Usage: switch <address|new>")
		return nil
	}

	if args[0] == "new" {
		addr, err := a.wallet.NewAccount(ctx)
		if err != nil {
			return err
		}
		printlnFn("Created account", addr)
	} else if err := a.wallet.Switch(ctx, args[0]); err != nil {
		return err
	}
	return a.reportSignIn()
}

func (a *App) Accounts(ctx context.Context) error {
	if a.wallet == nil {
		return ErrWalletOnly
	}
	addrs, err := a.wallet.Addresses(ctx)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		printlnFn("No accounts yet, use 'connect' or 'switch new'")
		return nil
	}
	_, current := a.controller.State()
	for _, addr := range addrs {
		marker := " "
		if strings.EqualFold(addr, current) {
			marker = "*"
		}
		printlnFn(marker, addr)
	}
	return nil
}

func (a *App) Import(ctx context.Context, args []string) error {
	if a.wallet == nil {
		return ErrWalletOnly
	}
	if len(args) != 1 {
		printlnFn("Usage: import <hexkey>")
		return nil
	}
	addr, err := a.wallet.Import(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn("Imported", addr, "(use 'switch' to select it)")
	return nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.controller.Add(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	return a.List(ctx, false)
}

func (a *App) Done(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: done <id>")
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.controller.Complete(ctx, id); err != nil {
		return err
	}
	return a.List(ctx, false)
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.controller.Refresh(ctx); err != nil {
		return err
	}
	return a.List(ctx, false)
}

// List prints the cached tasks. Completed tasks are hidden unless all is set.
func (a *App) List(_ context.Context, all bool) error {
	if !a.isSignedIn() {
		return controller.ErrNotSignedIn
	}

	tasks := a.controller.VisibleTasks()
	if all {
		tasks = a.controller.Tasks()
	}
	if len(tasks) == 0 {
		printlnFn("No tasks")
		return nil
	}
	for _, t := range tasks {
		printlnFn(formatTask(t))
	}
	return nil
}

func formatTask(t *models.Task) string {
	box := "[ ]"
	suffix := ""
	if t.Completed {
		box = "[x]"
		if t.CompletedAt != nil {
			suffix = "  (done " + t.CompletedAt.Local().Format("2006-01-02 15:04") + ")"
		}
	}
	return fmt.Sprintf("%s %4d  %s%s", box, t.ID, t.Text, suffix)
}

func (a *App) Export(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	e, err := a.controller.Export(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Exported %d task(s) to %s", e.Count, e.ObjectKey))
	printlnFn("Download link (valid until " + e.ExpiresAt.Local().Format("15:04") + "):")
	printlnFn(e.URL)

	if len(args) == 1 {
		n, err := downloadToFile(ctx, e.URL, args[0])
		if err != nil {
			return fmt.Errorf("download export: %w", err)
		}
		printlnFn(fmt.Sprintf("Saved %d bytes to %s", n, args[0]))
	}
	return nil
}
