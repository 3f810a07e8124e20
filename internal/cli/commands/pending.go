package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"Flomo/internal/config"
)

type pendingCmd struct{}

func (pendingCmd) Name() string { return "pending" }
func (pendingCmd) Description() string {
	return "Показать изменения, ожидающие отправки"
}
func (pendingCmd) Usage() string { return "pending" }

func (pendingCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	ch, err := app.Entities.Pending(ctx)
	if err != nil {
		return err
	}
	if ch.Empty() {
		fmt.Fprintln(Out, "Nothing to push")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tSTATUS")
	for _, c := range ch.Cards {
		fmt.Fprintf(tw, "card\t%s\t%s\n", c.ID, c.SyncStatus)
	}
	for _, f := range ch.Folders {
		fmt.Fprintf(tw, "folder\t%s\t%s\n", f.ID, f.SyncStatus)
	}
	for _, d := range ch.RichDocuments {
		fmt.Fprintf(tw, "richDocument\t%s\t%s\n", d.ID, d.SyncStatus)
	}
	return tw.Flush()
}

func init() { RegisterCmd(pendingCmd{}) }
