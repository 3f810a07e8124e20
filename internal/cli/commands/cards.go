package commands

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/service"
	"Flomo/internal/config"
)

type cardAddCmd struct{}

func (cardAddCmd) Name() string        { return "card-add" }
func (cardAddCmd) Description() string { return "Создать карточку" }
func (cardAddCmd) Usage() string {
	return "card-add [--folder <id>] [--text <text>] [--draft <doc-id>] <title>"
}

func (cardAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("card-add")
	folder := fs.String("folder", "", "id папки")
	text := fs.String("text", "", "текст карточки")
	draft := fs.String("draft", "", "id документа-черновика")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 || fs.Arg(0) == "" {
		return ErrUsage
	}

	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	c, err := app.Entities.CreateCard(ctx, service.CardInput{
		Title:    fs.Arg(0),
		RawText:  *text,
		FolderID: ref(*folder),
		Draft:    *draft,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	fmt.Fprintf(Out, "  id:    %s\n", c.ID)
	fmt.Fprintf(Out, "  title: %s\n", c.Title)
	return nil
}

type cardEditCmd struct{}

func (cardEditCmd) Name() string { return "card-edit" }
func (cardEditCmd) Description() string {
	return "Изменить карточку (папка \"-\": верхний уровень)"
}
func (cardEditCmd) Usage() string {
	return "card-edit [--title <t>] [--text <t>] [--folder <id|->] <id>"
}

func (cardEditCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("card-edit")
	title := fs.String("title", "", "новый заголовок")
	text := fs.String("text", "", "новый текст")
	folder := fs.String("folder", "", "новая папка")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return ErrUsage
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		return ErrUsage
	}

	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	c, err := app.Entities.UpdateCard(ctx, fs.Arg(0), func(c *model.Card) {
		if set["title"] {
			c.Title = *title
		}
		if set["text"] {
			c.RawText = *text
		}
		if set["folder"] {
			c.FolderID = ref(*folder)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Обновлено: %s\n", c.ID)
	return nil
}

type cardRmCmd struct{}

func (cardRmCmd) Name() string        { return "card-rm" }
func (cardRmCmd) Description() string { return "Удалить карточку" }
func (cardRmCmd) Usage() string       { return "card-rm <id>" }

func (cardRmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Entities.DeleteCard(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Удалено: %s\n", args[0])
	return nil
}

type cardsCmd struct{}

func (cardsCmd) Name() string { return "cards" }
func (cardsCmd) Description() string {
	return "Список карточек (--folder -: верхний уровень)"
}
func (cardsCmd) Usage() string { return "cards [--folder <id|->]" }

func (cardsCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("cards")
	folder := fs.String("folder", "", "id папки")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	var cards []model.Card
	if *folder == "" {
		cards, err = app.Entities.Cards(ctx)
	} else {
		cards, err = app.Entities.CardsInFolder(ctx, ref(*folder))
	}
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(Out, "No cards")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFOLDER\tSTATUS")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Title, refString(c.FolderID), c.SyncStatus)
	}
	return tw.Flush()
}

func init() {
	RegisterCmd(cardAddCmd{})
	RegisterCmd(cardEditCmd{})
	RegisterCmd(cardRmCmd{})
	RegisterCmd(cardsCmd{})
}
