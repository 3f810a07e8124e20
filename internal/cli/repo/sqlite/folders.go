package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Flomo/internal/cli/model"
)

const folderColumns = `id, parent_id, title, payload,
	created_at, updated_at, server_version, is_deleted, sync_status`

func scanFolder(sc rowScanner) (model.Folder, error) {
	var (
		f        model.Folder
		parentID sql.NullString
		payload  sql.NullString
		delInt   int
		status   string
	)
	err := sc.Scan(&f.ID, &parentID, &f.Title, &payload,
		&f.CreatedAt, &f.UpdatedAt, &f.ServerVersion, &delInt, &status)
	if err != nil {
		return model.Folder{}, err
	}
	if err := decodeJSON(payload, &f.Payload); err != nil {
		return model.Folder{}, fmt.Errorf("decode folder %s payload: %w", f.ID, err)
	}
	f.ParentID = nullableID(parentID)
	f.IsDeleted = delInt != 0
	f.SyncStatus = model.SyncStatus(status)
	return f, nil
}

func queryFolders(ctx context.Context, q dbtx, where string, args ...any) ([]model.Folder, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+folderColumns+` FROM folders `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func upsertFolder(ctx context.Context, q dbtx, f model.Folder) error {
	payload, err := encodeJSON(f.Payload)
	if err != nil {
		return fmt.Errorf("encode folder %s payload: %w", f.ID, err)
	}
	_, err = q.ExecContext(ctx, `INSERT INTO folders(`+folderColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			title = excluded.title,
			payload = excluded.payload,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			server_version = excluded.server_version,
			is_deleted = excluded.is_deleted,
			sync_status = excluded.sync_status`,
		f.ID, idArg(f.ParentID), f.Title, payload,
		f.CreatedAt, f.UpdatedAt, f.ServerVersion, f.IsDeleted, string(f.SyncStatus),
	)
	return err
}

// GetFolder возвращает папку по id или (nil, nil).
func (s *Store) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// GetAllFolders возвращает все не удалённые папки.
func (s *Store) GetAllFolders(ctx context.Context) ([]model.Folder, error) {
	return queryFolders(ctx, s.db, `WHERE is_deleted = 0`)
}

// GetFoldersByParent возвращает дочерние папки; nil: папки верхнего уровня.
func (s *Store) GetFoldersByParent(ctx context.Context, parentID *string) ([]model.Folder, error) {
	return queryFolders(ctx, s.db, `WHERE is_deleted = 0 AND parent_id IS ?`, idArg(parentID))
}

// PutFolder сохраняет папку целиком.
func (s *Store) PutFolder(ctx context.Context, f model.Folder) error {
	return upsertFolder(ctx, s.db, f)
}

// BulkPutFolders сохраняет пачку папок в одной транзакции.
func (s *Store) BulkPutFolders(ctx context.Context, folders []model.Folder) error {
	if len(folders) == 0 {
		return nil
	}
	return withTx(ctx, s.db, func(tx dbtx) error {
		for _, f := range folders {
			if err := upsertFolder(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteFolder удаляет папку физически (идемпотентно).
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	return err
}
