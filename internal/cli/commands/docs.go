package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"Flomo/internal/config"
)

var errInvalidContent = errors.New("content must be valid JSON")

type docAddCmd struct{}

func (docAddCmd) Name() string        { return "doc-add" }
func (docAddCmd) Description() string { return "Создать документ из JSON" }
func (docAddCmd) Usage() string       { return "doc-add <json>" }

func (docAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if !json.Valid([]byte(args[0])) {
		return errInvalidContent
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	d, err := app.Entities.CreateDocument(ctx, json.RawMessage(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	fmt.Fprintf(Out, "  id: %s\n", d.ID)
	return nil
}

type docEditCmd struct{}

func (docEditCmd) Name() string { return "doc-edit" }
func (docEditCmd) Description() string {
	return "Заменить содержимое документа (старое уходит в историю)"
}
func (docEditCmd) Usage() string { return "doc-edit <id> <json>" }

func (docEditCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	if !json.Valid([]byte(args[1])) {
		return errInvalidContent
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	d, err := app.Entities.UpdateDocument(ctx, args[0], json.RawMessage(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Обновлено: %s (версий в истории: %d)\n", d.ID, len(d.History))
	return nil
}

type docRmCmd struct{}

func (docRmCmd) Name() string        { return "doc-rm" }
func (docRmCmd) Description() string { return "Удалить документ" }
func (docRmCmd) Usage() string       { return "doc-rm <id>" }

func (docRmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Entities.DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Удалено: %s\n", args[0])
	return nil
}

type docsCmd struct{}

func (docsCmd) Name() string        { return "docs" }
func (docsCmd) Description() string { return "Список документов" }
func (docsCmd) Usage() string       { return "docs" }

func (docsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	docs, err := app.Entities.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(Out, "No documents")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHISTORY\tSTATUS")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.ID, len(d.History), d.SyncStatus)
	}
	return tw.Flush()
}

func init() {
	RegisterCmd(docAddCmd{})
	RegisterCmd(docEditCmd{})
	RegisterCmd(docRmCmd{})
	RegisterCmd(docsCmd{})
}
