package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"Flomo/internal/cli/repo"

	_ "modernc.org/sqlite"
)

// Store - локальное хранилище сущностей на SQLite.
type Store struct {
	db *sql.DB
}

var _ repo.Store = (*Store)(nil)

// Open открывает (и создаёт при необходимости) файл БД по указанному пути.
// Путь ":memory:" открывает БД в памяти (используется в тестах).
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty client db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// одно соединение: записи сериализуются, а :memory: живёт до Close
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate гарантирует наличие необходимых таблиц/индексов.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(initialDDL())
	return err
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw sql.NullString, dst any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), dst)
}

func nullableID(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func idArg(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
