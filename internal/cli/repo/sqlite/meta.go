package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo"
)

const dirtyFilter = `WHERE sync_status IN ('pending', 'deleted')`

// GetSyncMeta возвращает значение ключа sync_meta и признак его наличия.
func (s *Store) GetSyncMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get sync_meta[%s]: %w", key, err)
	}
	return value, true, nil
}

// SetSyncMeta записывает значение ключа sync_meta.
func (s *Store) SetSyncMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set sync_meta[%s]: %w", key, err)
	}
	return nil
}

// GetLastServerVersion возвращает сохранённую high-water mark (0, если не задана).
func (s *Store) GetLastServerVersion(ctx context.Context) (int64, error) {
	raw, ok, err := s.GetSyncMeta(ctx, repo.MetaLastServerVersion)
	if err != nil {
		return 0, err
	}
	return repo.ParseVersion(raw, ok)
}

// ClearAllData очищает все таблицы в одной транзакции.
func (s *Store) ClearAllData(ctx context.Context) error {
	return withTx(ctx, s.db, func(tx dbtx) error {
		for _, table := range []string{"cards", "folders", "rich_documents", "sync_meta"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// GetPendingChanges читает записи pending/deleted всех трёх коллекций внутри одной
// транзакции: параллельная запись не может попасть в снимок частично.
func (s *Store) GetPendingChanges(ctx context.Context) (model.Changes, error) {
	var ch model.Changes
	err := withTx(ctx, s.db, func(tx dbtx) error {
		var err error
		if ch.Cards, err = queryCards(ctx, tx, dirtyFilter); err != nil {
			return fmt.Errorf("pending cards: %w", err)
		}
		if ch.Folders, err = queryFolders(ctx, tx, dirtyFilter); err != nil {
			return fmt.Errorf("pending folders: %w", err)
		}
		if ch.RichDocuments, err = queryDocuments(ctx, tx, dirtyFilter); err != nil {
			return fmt.Errorf("pending documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Changes{}, err
	}
	return ch, nil
}

// AckPushed выполняет compare-and-set по updated_at для всего пакета в одной транзакции.
func (s *Store) AckPushed(ctx context.Context, pushed model.Changes) error {
	return withTx(ctx, s.db, func(tx dbtx) error {
		for _, c := range pushed.Cards {
			if err := ackRow(ctx, tx, "cards", c.Record, true); err != nil {
				return err
			}
		}
		for _, f := range pushed.Folders {
			if err := ackRow(ctx, tx, "folders", f.Record, true); err != nil {
				return err
			}
		}
		for _, d := range pushed.RichDocuments {
			if err := ackRow(ctx, tx, "rich_documents", d.Record, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func ackRow(ctx context.Context, tx dbtx, table string, r model.Record, hardDelete bool) error {
	var err error
	if hardDelete && r.SyncStatus == model.StatusDeleted {
		_, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ? AND updated_at = ?`, r.ID, r.UpdatedAt)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE `+table+` SET sync_status = ? WHERE id = ? AND updated_at = ?`,
			string(model.StatusSynced), r.ID, r.UpdatedAt)
	}
	if err != nil {
		return fmt.Errorf("ack %s %s: %w", table, r.ID, err)
	}
	return nil
}
