package commands

import (
	"context"
	"fmt"

	"Flomo/internal/cli/repo"
	"Flomo/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string { return "status" }
func (statusCmd) Description() string {
	return "Показать состояние локальной базы и синхронизации"
}
func (statusCmd) Usage() string { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	v, err := app.Store.GetLastServerVersion(ctx)
	if err != nil {
		return err
	}
	raw, ok, err := app.Store.GetSyncMeta(ctx, repo.MetaLastSyncTime)
	if err != nil {
		return err
	}
	pending, err := app.Entities.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "server:              %s\n", cfg.ServerURL)
	fmt.Fprintf(Out, "database:            %s\n", cfg.ClientDBPath)
	fmt.Fprintf(Out, "last server version: %d\n", v)
	fmt.Fprintf(Out, "last sync:           %s\n", formatMillis(raw, ok))
	fmt.Fprintf(Out, "pending:             %d card(s), %d folder(s), %d document(s)\n",
		len(pending.Cards), len(pending.Folders), len(pending.RichDocuments))
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
