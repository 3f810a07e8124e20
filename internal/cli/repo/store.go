package repo

import (
	"context"
	"errors"
	"strconv"

	"Flomo/internal/cli/model"
)

// Ключи таблицы sync_meta.
const (
	MetaLastServerVersion = "lastServerVersion"
	MetaLastSyncTime      = "lastSyncTime"
)

// ErrFolderCycle возвращается, если новая ссылка parentId замкнула бы дерево папок.
var ErrFolderCycle = errors.New("folder parent would create a cycle")

// CardStore - доступ к коллекции карточек.
// Get возвращает (nil, nil), если записи нет. Delete идемпотентен.
type CardStore interface {
	GetCard(ctx context.Context, id string) (*model.Card, error)
	// GetAllCards возвращает только записи с isDeleted = false.
	GetAllCards(ctx context.Context) ([]model.Card, error)
	// GetCardsByFolder фильтрует GetAllCards по folderId; nil: карточки верхнего уровня.
	GetCardsByFolder(ctx context.Context, folderID *string) ([]model.Card, error)
	PutCard(ctx context.Context, c model.Card) error
	BulkPutCards(ctx context.Context, cards []model.Card) error
	DeleteCard(ctx context.Context, id string) error
}

// FolderStore - доступ к коллекции папок.
type FolderStore interface {
	GetFolder(ctx context.Context, id string) (*model.Folder, error)
	GetAllFolders(ctx context.Context) ([]model.Folder, error)
	GetFoldersByParent(ctx context.Context, parentID *string) ([]model.Folder, error)
	PutFolder(ctx context.Context, f model.Folder) error
	BulkPutFolders(ctx context.Context, folders []model.Folder) error
	DeleteFolder(ctx context.Context, id string) error
}

// RichDocumentStore - доступ к документам редактора.
type RichDocumentStore interface {
	GetRichDocument(ctx context.Context, id string) (*model.RichDocument, error)
	GetAllRichDocuments(ctx context.Context) ([]model.RichDocument, error)
	PutRichDocument(ctx context.Context, d model.RichDocument) error
	BulkPutRichDocuments(ctx context.Context, docs []model.RichDocument) error
	DeleteRichDocument(ctx context.Context, id string) error
}

// MetaStore - служебная таблица синхронизации.
type MetaStore interface {
	// GetSyncMeta возвращает значение и признак наличия ключа.
	GetSyncMeta(ctx context.Context, key string) (string, bool, error)
	SetSyncMeta(ctx context.Context, key, value string) error
	// GetLastServerVersion возвращает 0, если значение ещё не сохранялось.
	GetLastServerVersion(ctx context.Context) (int64, error)
	// ClearAllData атомарно очищает все четыре таблицы.
	ClearAllData(ctx context.Context) error
	// GetPendingChanges возвращает все записи со статусом pending или deleted,
	// прочитанные из одного согласованного снимка.
	GetPendingChanges(ctx context.Context) (model.Changes, error)
	// AckPushed атомарно фиксирует подтверждённый сервером push. Запись, у которой
	// updatedAt совпадает с отправленным, становится synced; удалённые карточки и
	// папки стираются, документы остаются synced-tombstone. Записи, изменённые
	// после снимка, не трогаются и уйдут следующим push.
	AckPushed(ctx context.Context, pushed model.Changes) error
}

// Store - полный контракт локального хранилища, который использует менеджер синхронизации.
type Store interface {
	CardStore
	FolderStore
	RichDocumentStore
	MetaStore
}

// ParseVersion разбирает сохранённое значение lastServerVersion.
func ParseVersion(raw string, ok bool) (int64, error) {
	if !ok || raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
