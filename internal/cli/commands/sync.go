package commands

import (
	"context"
	"errors"
	"fmt"

	"Flomo/internal/cli/repo"
	"Flomo/internal/cli/service"
	"Flomo/internal/config"
)

type fullSyncCmd struct{}

func (fullSyncCmd) Name() string { return "full-sync" }
func (fullSyncCmd) Description() string {
	return "Заменить локальные данные снимком сервера (несинхронизированные правки теряются)"
}
func (fullSyncCmd) Usage() string { return "full-sync" }

func (fullSyncCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	fmt.Fprintln(Out, "→ Полная синхронизация…")
	if err := app.Sync.FullSync(ctx); err != nil {
		return err
	}
	return printSyncResult(ctx, app.Store, app.Sync.Status())
}

type syncCmd struct{}

func (syncCmd) Name() string { return "sync" }
func (syncCmd) Description() string {
	return "Отправить локальные изменения и получить новые с сервера"
}
func (syncCmd) Usage() string { return "sync" }

func (syncCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	fmt.Fprintln(Out, "→ Синхронизация…")
	app.Sync.Sync(ctx)
	return printSyncResult(ctx, app.Store, app.Sync.Status())
}

type pushCmd struct{}

func (pushCmd) Name() string { return "push" }
func (pushCmd) Description() string {
	return "Только отправить локальные изменения"
}
func (pushCmd) Usage() string { return "push" }

func (pushCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	pending, err := app.Entities.Pending(ctx)
	if err != nil {
		return err
	}
	if err := app.Sync.PushChanges(ctx); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Отправлено записей: %d\n", pending.Len())
	return nil
}

type pullCmd struct{}

func (pullCmd) Name() string { return "pull" }
func (pullCmd) Description() string {
	return "Только получить изменения сервера"
}
func (pullCmd) Usage() string { return "pull" }

func (pullCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Sync.PullChanges(ctx); err != nil {
		return err
	}
	v, err := app.Store.GetLastServerVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Версия сервера: %d\n", v)
	return nil
}

func printSyncResult(ctx context.Context, st repo.MetaStore, s service.Status) error {
	if s.State == service.StateError {
		return errors.New(s.Error)
	}
	v, err := st.GetLastServerVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Синхронизировано. Версия сервера: %d\n", v)
	return nil
}

func init() {
	RegisterCmd(fullSyncCmd{})
	RegisterCmd(syncCmd{})
	RegisterCmd(pushCmd{})
	RegisterCmd(pullCmd{})
}
