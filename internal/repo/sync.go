package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Flomo/internal/model"
)

// ErrIDCollision - id уже занят записью другой коллекции.
var ErrIDCollision = errors.New("id already used by another collection")

// SyncRepository - хранилище записей сервера синхронизации.
type SyncRepository interface {
	// Snapshot возвращает все записи без tombstones.
	Snapshot(ctx context.Context) (model.Batch, error)
	// ChangesSince возвращает записи с serverVersion > since, включая tombstones, по возрастанию версии.
	ChangesSince(ctx context.Context, since int64) (model.Batch, error)
	// CurrentVersion - последнее выданное значение глобальной версии.
	CurrentVersion(ctx context.Context) (int64, error)
	// ApplyPush применяет пакет в одной транзакции. Повторный ключ не применяется второй раз.
	ApplyPush(ctx context.Context, key string, batch model.Batch) (PushResult, error)
	// PrunePushKeys удаляет ключи идемпотентности, принятые раньше olderThan.
	// После этого повтор с тем же ключом применяется как новый push.
	PrunePushKeys(ctx context.Context, olderThan time.Time) (int64, error)
}

// PushResult - итог применения push.
type PushResult struct {
	Duplicate bool
	Applied   int
	Skipped   int // устаревшие по updatedAt и дубликаты внутри пакета
	Version   int64
}

type syncRepo struct {
	db *gorm.DB
}

// NewSyncRepository создаёт репозиторий синхронизации поверх gorm.
func NewSyncRepository(db *gorm.DB) SyncRepository {
	return &syncRepo{db: db}
}

func cardMeta(c *model.Card) *model.Meta             { return &c.Meta }
func folderMeta(f *model.Folder) *model.Meta         { return &f.Meta }
func documentMeta(d *model.RichDocument) *model.Meta { return &d.Meta }

func (r *syncRepo) Snapshot(ctx context.Context) (model.Batch, error) {
	return r.load(ctx, "is_deleted = ?", false)
}

func (r *syncRepo) ChangesSince(ctx context.Context, since int64) (model.Batch, error) {
	return r.load(ctx, "server_version > ?", since)
}

func (r *syncRepo) load(ctx context.Context, cond string, arg any) (model.Batch, error) {
	b := model.Batch{Cards: []model.Card{}, Folders: []model.Folder{}, RichDocuments: []model.RichDocument{}}
	db := r.db.WithContext(ctx)
	if err := db.Where(cond, arg).Order("server_version").Find(&b.Cards).Error; err != nil {
		return b, err
	}
	if err := db.Where(cond, arg).Order("server_version").Find(&b.Folders).Error; err != nil {
		return b, err
	}
	if err := db.Where(cond, arg).Order("server_version").Find(&b.RichDocuments).Error; err != nil {
		return b, err
	}
	return b, nil
}

func (r *syncRepo) CurrentVersion(ctx context.Context) (int64, error) {
	var c model.Counter
	if err := r.db.WithContext(ctx).Where("name = ?", versionCounter).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (r *syncRepo) ApplyPush(ctx context.Context, key string, batch model.Batch) (PushResult, error) {
	var res PushResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key != "" {
			created := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "idempotency_key"}},
				DoNothing: true,
			}).Create(&model.PushKey{Key: key})
			if created.Error != nil {
				return created.Error
			}
			if created.RowsAffected == 0 {
				var prev model.PushKey
				if err := tx.Where("idempotency_key = ?", key).First(&prev).Error; err != nil {
					return err
				}
				res = PushResult{Duplicate: true, Version: prev.Version}
				return nil
			}
		}

		if err := checkCollisions(tx, batch); err != nil {
			return err
		}

		cards, skippedCards, err := acceptNewer(tx, batch.Cards, cardMeta)
		if err != nil {
			return err
		}
		folders, skippedFolders, err := acceptNewer(tx, batch.Folders, folderMeta)
		if err != nil {
			return err
		}
		docs, skippedDocs, err := acceptNewer(tx, batch.RichDocuments, documentMeta)
		if err != nil {
			return err
		}

		n := len(cards) + len(folders) + len(docs)
		top, err := bumpVersion(tx, n)
		if err != nil {
			return err
		}
		next := top - int64(n)
		next = stampVersions(cards, cardMeta, next)
		next = stampVersions(folders, folderMeta, next)
		stampVersions(docs, documentMeta, next)

		if err := upsert(tx, cards); err != nil {
			return err
		}
		if err := upsert(tx, folders); err != nil {
			return err
		}
		if err := upsert(tx, docs); err != nil {
			return err
		}

		if key != "" {
			if err := tx.Model(&model.PushKey{}).Where("idempotency_key = ?", key).Update("version", top).Error; err != nil {
				return err
			}
		}
		res = PushResult{
			Applied: n,
			Skipped: skippedCards + skippedFolders + skippedDocs,
			Version: top,
		}
		return nil
	})
	return res, err
}

// bumpVersion резервирует n версий и возвращает новое значение счётчика.
// UPDATE блокирует строку счётчика до конца транзакции.
func (r *syncRepo) PrunePushKeys(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", olderThan).Delete(&model.PushKey{})
	return res.RowsAffected, res.Error
}

func bumpVersion(tx *gorm.DB, n int) (int64, error) {
	if n > 0 {
		if err := tx.Model(&model.Counter{}).Where("name = ?", versionCounter).
			UpdateColumn("value", gorm.Expr("value + ?", n)).Error; err != nil {
			return 0, err
		}
	}
	var c model.Counter
	if err := tx.Where("name = ?", versionCounter).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

func stampVersions[T any](items []T, meta func(*T) *model.Meta, last int64) int64 {
	for i := range items {
		last++
		meta(&items[i]).ServerVersion = last
	}
	return last
}

func upsert[T any](tx *gorm.DB, items []T) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error
}

// acceptNewer отбрасывает записи старше сохранённых по updatedAt.
// Внутри пакета на один id остаётся последняя по updatedAt запись.
func acceptNewer[T any](tx *gorm.DB, incoming []T, meta func(*T) *model.Meta) ([]T, int, error) {
	if len(incoming) == 0 {
		return nil, 0, nil
	}
	skipped := 0
	pos := make(map[string]int, len(incoming))
	batch := make([]T, 0, len(incoming))
	for i := range incoming {
		m := meta(&incoming[i])
		if j, ok := pos[m.ID]; ok {
			skipped++
			if m.UpdatedAt >= meta(&batch[j]).UpdatedAt {
				batch[j] = incoming[i]
			}
			continue
		}
		pos[m.ID] = len(batch)
		batch = append(batch, incoming[i])
	}

	ids := make([]string, 0, len(batch))
	for i := range batch {
		ids = append(ids, meta(&batch[i]).ID)
	}
	var existing []T
	if err := tx.Where("id IN ?", ids).Find(&existing).Error; err != nil {
		return nil, 0, err
	}
	stored := make(map[string]int64, len(existing))
	for i := range existing {
		m := meta(&existing[i])
		stored[m.ID] = m.UpdatedAt
	}

	accepted := make([]T, 0, len(batch))
	for i := range batch {
		m := meta(&batch[i])
		if u, ok := stored[m.ID]; ok && m.UpdatedAt < u {
			skipped++
			continue
		}
		accepted = append(accepted, batch[i])
	}
	return accepted, skipped, nil
}

func checkCollisions(tx *gorm.DB, b model.Batch) error {
	cardIDs := collectIDs(b.Cards, cardMeta)
	folderIDs := collectIDs(b.Folders, folderMeta)
	docIDs := collectIDs(b.RichDocuments, documentMeta)

	owner := map[string]int{}
	for kind, ids := range [][]string{cardIDs, folderIDs, docIDs} {
		for _, id := range ids {
			if k, ok := owner[id]; ok && k != kind {
				return ErrIDCollision
			}
			owner[id] = kind
		}
	}

	checks := []struct {
		model any
		ids   []string
	}{
		{&model.Folder{}, cardIDs}, {&model.RichDocument{}, cardIDs},
		{&model.Card{}, folderIDs}, {&model.RichDocument{}, folderIDs},
		{&model.Card{}, docIDs}, {&model.Folder{}, docIDs},
	}
	for _, c := range checks {
		if len(c.ids) == 0 {
			continue
		}
		var n int64
		if err := tx.Model(c.model).Where("id IN ?", c.ids).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrIDCollision
		}
	}
	return nil
}

func collectIDs[T any](items []T, meta func(*T) *model.Meta) []string {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, meta(&items[i]).ID)
	}
	return ids
}
