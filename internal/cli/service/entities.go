package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo"
)

// ErrNotFound - записи нет или она удалена.
var ErrNotFound = errors.New("record not found")

// Entities - локальные изменения данных пользователем.
// Каждая правка получает статус pending, удаление: deleted; синхронизация
// доверяет этим флагам.
type Entities struct {
	store  repo.Store
	logger *zap.SugaredLogger
	now    func() time.Time
	newID  func() string
}

func NewEntities(store repo.Store, logger *zap.SugaredLogger) *Entities {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Entities{store: store, logger: logger, now: time.Now, newID: uuid.NewString}
}

// CardInput - поля новой карточки.
type CardInput struct {
	Title    string
	RawText  string
	FolderID *string
	Draft    string
	Payload  map[string]any
}

func (e *Entities) newRecord() model.Record {
	ts := e.now().UnixMilli()
	return model.Record{ID: e.newID(), CreatedAt: ts, UpdatedAt: ts, SyncStatus: model.StatusPending}
}

// touch сдвигает updatedAt строго вперёд, даже если часы отстают.
func (e *Entities) touch(r *model.Record, status model.SyncStatus) {
	ts := e.now().UnixMilli()
	if ts <= r.UpdatedAt {
		ts = r.UpdatedAt + 1
	}
	r.UpdatedAt = ts
	r.SyncStatus = status
}

// ---- cards ----

func (e *Entities) CreateCard(ctx context.Context, in CardInput) (model.Card, error) {
	if err := e.checkFolder(ctx, in.FolderID); err != nil {
		return model.Card{}, err
	}
	c := model.Card{
		Record:   e.newRecord(),
		FolderID: in.FolderID,
		Title:    in.Title,
		RawText:  in.RawText,
		Draft:    in.Draft,
		Payload:  in.Payload,
	}
	if err := e.store.PutCard(ctx, c); err != nil {
		return model.Card{}, err
	}
	e.logger.Debugw("Card created", "id", c.ID)
	return c, nil
}

// Card возвращает живую карточку или ErrNotFound.
func (e *Entities) Card(ctx context.Context, id string) (model.Card, error) {
	c, err := e.store.GetCard(ctx, id)
	if err != nil {
		return model.Card{}, err
	}
	if c == nil || c.IsDeleted {
		return model.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return *c, nil
}

// Cards возвращает все живые карточки.
func (e *Entities) Cards(ctx context.Context) ([]model.Card, error) {
	return e.store.GetAllCards(ctx)
}

// CardsInFolder - карточки папки; nil: верхний уровень.
func (e *Entities) CardsInFolder(ctx context.Context, folderID *string) ([]model.Card, error) {
	return e.store.GetCardsByFolder(ctx, folderID)
}

// UpdateCard применяет edit к карточке и помечает её pending.
func (e *Entities) UpdateCard(ctx context.Context, id string, edit func(*model.Card)) (model.Card, error) {
	c, err := e.Card(ctx, id)
	if err != nil {
		return model.Card{}, err
	}
	prevFolder := c.FolderID
	edit(&c)
	c.ID = id
	if !sameID(prevFolder, c.FolderID) {
		if err := e.checkFolder(ctx, c.FolderID); err != nil {
			return model.Card{}, err
		}
	}
	e.touch(&c.Record, model.StatusPending)
	if err := e.store.PutCard(ctx, c); err != nil {
		return model.Card{}, err
	}
	return c, nil
}

// DeleteCard ставит tombstone; физически запись удалит push.
func (e *Entities) DeleteCard(ctx context.Context, id string) error {
	c, err := e.Card(ctx, id)
	if err != nil {
		return err
	}
	c.IsDeleted = true
	e.touch(&c.Record, model.StatusDeleted)
	return e.store.PutCard(ctx, c)
}

// ---- folders ----

func (e *Entities) CreateFolder(ctx context.Context, title string, parentID *string) (model.Folder, error) {
	if err := e.checkFolder(ctx, parentID); err != nil {
		return model.Folder{}, err
	}
	f := model.Folder{Record: e.newRecord(), ParentID: parentID, Title: title}
	if err := e.store.PutFolder(ctx, f); err != nil {
		return model.Folder{}, err
	}
	e.logger.Debugw("Folder created", "id", f.ID)
	return f, nil
}

func (e *Entities) Folder(ctx context.Context, id string) (model.Folder, error) {
	f, err := e.store.GetFolder(ctx, id)
	if err != nil {
		return model.Folder{}, err
	}
	if f == nil || f.IsDeleted {
		return model.Folder{}, fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	return *f, nil
}

func (e *Entities) Folders(ctx context.Context) ([]model.Folder, error) {
	return e.store.GetAllFolders(ctx)
}

func (e *Entities) FoldersIn(ctx context.Context, parentID *string) ([]model.Folder, error) {
	return e.store.GetFoldersByParent(ctx, parentID)
}

func (e *Entities) RenameFolder(ctx context.Context, id, title string) (model.Folder, error) {
	f, err := e.Folder(ctx, id)
	if err != nil {
		return model.Folder{}, err
	}
	f.Title = title
	e.touch(&f.Record, model.StatusPending)
	if err := e.store.PutFolder(ctx, f); err != nil {
		return model.Folder{}, err
	}
	return f, nil
}

// MoveFolder меняет родителя. Перенос внутрь собственного поддерева
// возвращает repo.ErrFolderCycle.
func (e *Entities) MoveFolder(ctx context.Context, id string, parentID *string) (model.Folder, error) {
	f, err := e.Folder(ctx, id)
	if err != nil {
		return model.Folder{}, err
	}
	if err := e.checkFolder(ctx, parentID); err != nil {
		return model.Folder{}, err
	}
	if err := e.checkAcyclic(ctx, id, parentID); err != nil {
		return model.Folder{}, err
	}
	f.ParentID = parentID
	e.touch(&f.Record, model.StatusPending)
	if err := e.store.PutFolder(ctx, f); err != nil {
		return model.Folder{}, err
	}
	return f, nil
}

// DeleteFolder ставит tombstone только на саму папку: ссылки на неё слабые.
func (e *Entities) DeleteFolder(ctx context.Context, id string) error {
	f, err := e.Folder(ctx, id)
	if err != nil {
		return err
	}
	f.IsDeleted = true
	e.touch(&f.Record, model.StatusDeleted)
	return e.store.PutFolder(ctx, f)
}

func (e *Entities) checkFolder(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	_, err := e.Folder(ctx, *id)
	return err
}

func (e *Entities) checkAcyclic(ctx context.Context, id string, parentID *string) error {
	seen := map[string]bool{}
	for cur := parentID; cur != nil; {
		if *cur == id {
			return repo.ErrFolderCycle
		}
		if seen[*cur] {
			// цикл уже есть выше по дереву (пришёл с сервера), через id он не проходит
			return nil
		}
		seen[*cur] = true
		f, err := e.store.GetFolder(ctx, *cur)
		if err != nil {
			return err
		}
		if f == nil {
			return nil
		}
		cur = f.ParentID
	}
	return nil
}

// ---- rich documents ----

func (e *Entities) CreateDocument(ctx context.Context, content json.RawMessage) (model.RichDocument, error) {
	d := model.RichDocument{Record: e.newRecord(), Content: content}
	if err := e.store.PutRichDocument(ctx, d); err != nil {
		return model.RichDocument{}, err
	}
	e.logger.Debugw("Rich document created", "id", d.ID)
	return d, nil
}

func (e *Entities) Document(ctx context.Context, id string) (model.RichDocument, error) {
	d, err := e.store.GetRichDocument(ctx, id)
	if err != nil {
		return model.RichDocument{}, err
	}
	if d == nil || d.IsDeleted {
		return model.RichDocument{}, fmt.Errorf("rich document %s: %w", id, ErrNotFound)
	}
	return *d, nil
}

func (e *Entities) Documents(ctx context.Context) ([]model.RichDocument, error) {
	return e.store.GetAllRichDocuments(ctx)
}

// UpdateDocument заменяет содержимое; прежняя версия уходит в history.
func (e *Entities) UpdateDocument(ctx context.Context, id string, content json.RawMessage) (model.RichDocument, error) {
	d, err := e.Document(ctx, id)
	if err != nil {
		return model.RichDocument{}, err
	}
	if len(d.Content) > 0 {
		d.History = append(d.History, d.Content)
	}
	d.Content = content
	e.touch(&d.Record, model.StatusPending)
	if err := e.store.PutRichDocument(ctx, d); err != nil {
		return model.RichDocument{}, err
	}
	return d, nil
}

func (e *Entities) DeleteDocument(ctx context.Context, id string) error {
	d, err := e.Document(ctx, id)
	if err != nil {
		return err
	}
	d.IsDeleted = true
	e.touch(&d.Record, model.StatusDeleted)
	return e.store.PutRichDocument(ctx, d)
}

// Pending - всё, что уйдёт в следующий push.
func (e *Entities) Pending(ctx context.Context) (model.Changes, error) {
	return e.store.GetPendingChanges(ctx)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
