package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"Flomo/internal/cli/model"
)

const documentColumns = `id, content, history,
	created_at, updated_at, server_version, is_deleted, sync_status`

func scanDocument(sc rowScanner) (model.RichDocument, error) {
	var (
		d       model.RichDocument
		content sql.NullString
		history sql.NullString
		delInt  int
		status  string
	)
	err := sc.Scan(&d.ID, &content, &history,
		&d.CreatedAt, &d.UpdatedAt, &d.ServerVersion, &delInt, &status)
	if err != nil {
		return model.RichDocument{}, err
	}
	if content.Valid && content.String != "" {
		d.Content = json.RawMessage(content.String)
	}
	if err := decodeJSON(history, &d.History); err != nil {
		return model.RichDocument{}, fmt.Errorf("decode document %s history: %w", d.ID, err)
	}
	d.IsDeleted = delInt != 0
	d.SyncStatus = model.SyncStatus(status)
	return d, nil
}

func queryDocuments(ctx context.Context, q dbtx, where string, args ...any) ([]model.RichDocument, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+documentColumns+` FROM rich_documents `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.RichDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func upsertDocument(ctx context.Context, q dbtx, d model.RichDocument) error {
	history, err := encodeJSON(d.History)
	if err != nil {
		return fmt.Errorf("encode document %s history: %w", d.ID, err)
	}
	var content any
	if len(d.Content) > 0 {
		content = string(d.Content)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO rich_documents(`+documentColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			history = excluded.history,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			server_version = excluded.server_version,
			is_deleted = excluded.is_deleted,
			sync_status = excluded.sync_status`,
		d.ID, content, history,
		d.CreatedAt, d.UpdatedAt, d.ServerVersion, d.IsDeleted, string(d.SyncStatus),
	)
	return err
}

// GetRichDocument возвращает документ по id или (nil, nil).
func (s *Store) GetRichDocument(ctx context.Context, id string) (*model.RichDocument, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM rich_documents WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// GetAllRichDocuments возвращает все не удалённые документы.
func (s *Store) GetAllRichDocuments(ctx context.Context) ([]model.RichDocument, error) {
	return queryDocuments(ctx, s.db, `WHERE is_deleted = 0`)
}

// PutRichDocument сохраняет документ целиком.
func (s *Store) PutRichDocument(ctx context.Context, d model.RichDocument) error {
	return upsertDocument(ctx, s.db, d)
}

// BulkPutRichDocuments сохраняет пачку документов в одной транзакции.
func (s *Store) BulkPutRichDocuments(ctx context.Context, docs []model.RichDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return withTx(ctx, s.db, func(tx dbtx) error {
		for _, d := range docs {
			if err := upsertDocument(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRichDocument удаляет документ физически (идемпотентно).
func (s *Store) DeleteRichDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rich_documents WHERE id = ?`, id)
	return err
}
