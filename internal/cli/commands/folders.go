package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"Flomo/internal/cli/model"
	"Flomo/internal/config"
)

type folderAddCmd struct{}

func (folderAddCmd) Name() string        { return "folder-add" }
func (folderAddCmd) Description() string { return "Создать папку" }
func (folderAddCmd) Usage() string       { return "folder-add [--parent <id>] <title>" }

func (folderAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("folder-add")
	parent := fs.String("parent", "", "id родительской папки")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 || fs.Arg(0) == "" {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	f, err := app.Entities.CreateFolder(ctx, fs.Arg(0), ref(*parent))
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, "Created:")
	fmt.Fprintf(Out, "  id:    %s\n", f.ID)
	fmt.Fprintf(Out, "  title: %s\n", f.Title)
	return nil
}

type folderMvCmd struct{}

func (folderMvCmd) Name() string { return "folder-mv" }
func (folderMvCmd) Description() string {
	return "Переместить папку (\"-\": в корень) или переименовать (--title)"
}
func (folderMvCmd) Usage() string { return "folder-mv [--title <t>] <id> [<parent-id|->]" }

func (folderMvCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("folder-mv")
	title := fs.String("title", "", "новое название")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 || fs.NArg() > 2 {
		return ErrUsage
	}
	if fs.NArg() == 1 && *title == "" {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	id := fs.Arg(0)
	if *title != "" {
		if _, err := app.Entities.RenameFolder(ctx, id, *title); err != nil {
			return err
		}
	}
	if fs.NArg() == 2 {
		if _, err := app.Entities.MoveFolder(ctx, id, ref(fs.Arg(1))); err != nil {
			return err
		}
	}
	fmt.Fprintf(Out, "✓ Обновлено: %s\n", id)
	return nil
}

type folderRmCmd struct{}

func (folderRmCmd) Name() string        { return "folder-rm" }
func (folderRmCmd) Description() string { return "Удалить папку" }
func (folderRmCmd) Usage() string       { return "folder-rm <id>" }

func (folderRmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	if err := app.Entities.DeleteFolder(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Удалено: %s\n", args[0])
	return nil
}

type foldersCmd struct{}

func (foldersCmd) Name() string { return "folders" }
func (foldersCmd) Description() string {
	return "Список папок (--parent -: верхний уровень)"
}
func (foldersCmd) Usage() string { return "folders [--parent <id|->]" }

func (foldersCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := newFlagSet("folders")
	parent := fs.String("parent", "", "id родительской папки")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return ErrUsage
	}
	app, done, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer done()

	var folders []model.Folder
	if *parent == "" {
		folders, err = app.Entities.Folders(ctx)
	} else {
		folders, err = app.Entities.FoldersIn(ctx, ref(*parent))
	}
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Fprintln(Out, "No folders")
		return nil
	}
	tw := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPARENT\tSTATUS")
	for _, f := range folders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Title, refString(f.ParentID), f.SyncStatus)
	}
	return tw.Flush()
}

func init() {
	RegisterCmd(folderAddCmd{})
	RegisterCmd(folderMvCmd{})
	RegisterCmd(folderRmCmd{})
	RegisterCmd(foldersCmd{})
}
