package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Flomo/internal/cli/model"
)

const cardColumns = `id, folder_id, title, draft, payload, raw_text,
	created_at, updated_at, server_version, is_deleted, sync_status`

func scanCard(sc rowScanner) (model.Card, error) {
	var (
		c        model.Card
		folderID sql.NullString
		payload  sql.NullString
		delInt   int
		status   string
	)
	err := sc.Scan(&c.ID, &folderID, &c.Title, &c.Draft, &payload, &c.RawText,
		&c.CreatedAt, &c.UpdatedAt, &c.ServerVersion, &delInt, &status)
	if err != nil {
		return model.Card{}, err
	}
	if err := decodeJSON(payload, &c.Payload); err != nil {
		return model.Card{}, fmt.Errorf("decode card %s payload: %w", c.ID, err)
	}
	c.FolderID = nullableID(folderID)
	c.IsDeleted = delInt != 0
	c.SyncStatus = model.SyncStatus(status)
	return c, nil
}

func queryCards(ctx context.Context, q dbtx, where string, args ...any) ([]model.Card, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func upsertCard(ctx context.Context, q dbtx, c model.Card) error {
	payload, err := encodeJSON(c.Payload)
	if err != nil {
		return fmt.Errorf("encode card %s payload: %w", c.ID, err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO cards(`+cardColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder_id = excluded.folder_id,
			title = excluded.title,
			draft = excluded.draft,
			payload = excluded.payload,
			raw_text = excluded.raw_text,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			server_version = excluded.server_version,
			is_deleted = excluded.is_deleted,
			sync_status = excluded.sync_status`,
		c.ID, idArg(c.FolderID), c.Title, c.Draft, payload, c.RawText,
		c.CreatedAt, c.UpdatedAt, c.ServerVersion, c.IsDeleted, string(c.SyncStatus),
	)
	return err
}

// GetCard возвращает карточку по id или (nil, nil), если её нет.
func (s *Store) GetCard(ctx context.Context, id string) (*model.Card, error) {
	c, err := scanCard(s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetAllCards возвращает все не удалённые карточки в порядке вставки.
func (s *Store) GetAllCards(ctx context.Context) ([]model.Card, error) {
	return queryCards(ctx, s.db, `WHERE is_deleted = 0`)
}

// GetCardsByFolder возвращает карточки папки; nil: карточки без папки.
func (s *Store) GetCardsByFolder(ctx context.Context, folderID *string) ([]model.Card, error) {
	return queryCards(ctx, s.db, `WHERE is_deleted = 0 AND folder_id IS ?`, idArg(folderID))
}

// PutCard сохраняет карточку целиком (upsert по id).
func (s *Store) PutCard(ctx context.Context, c model.Card) error {
	return upsertCard(ctx, s.db, c)
}

// BulkPutCards сохраняет пачку карточек в одной транзакции.
func (s *Store) BulkPutCards(ctx context.Context, cards []model.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return withTx(ctx, s.db, func(tx dbtx) error {
		for _, c := range cards {
			if err := upsertCard(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCard удаляет карточку физически. Отсутствие записи ошибкой не считается.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	return err
}
