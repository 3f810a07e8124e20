// Package memory: хранилище сущностей в памяти процесса.
// Реализует тот же контракт repo.Store, что и SQLite; используется в тестах
// и там, где персистентность не нужна.
package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo"
)

// table хранит записи одной коллекции в порядке первой вставки.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: map[string]T{}}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) delete(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(x string) bool { return x == id })
}

func (t *table[T]) filter(keep func(T) bool) []T {
	var res []T
	for _, id := range t.order {
		if v := t.rows[id]; keep(v) {
			res = append(res, v)
		}
	}
	return res
}

// Store - потокобезопасное хранилище в памяти.
type Store struct {
	mu      sync.RWMutex
	cards   *table[model.Card]
	folders *table[model.Folder]
	docs    *table[model.RichDocument]
	meta    map[string]string
}

var _ repo.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		cards:   newTable[model.Card](),
		folders: newTable[model.Folder](),
		docs:    newTable[model.RichDocument](),
		meta:    map[string]string{},
	}
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// копии изолируют вызывающего от внутреннего состояния: указатели, срезы и payload
// (включая вложенные map/slice) копируются целиком.
func cloneCard(c model.Card) model.Card {
	if c.FolderID != nil {
		v := *c.FolderID
		c.FolderID = &v
	}
	c.Payload = cloneMap(c.Payload)
	return c
}

func cloneFolder(f model.Folder) model.Folder {
	if f.ParentID != nil {
		v := *f.ParentID
		f.ParentID = &v
	}
	f.Payload = cloneMap(f.Payload)
	return f
}

func cloneDocument(d model.RichDocument) model.RichDocument {
	d.Content = slices.Clone(d.Content)
	if d.History != nil {
		h := make([]json.RawMessage, len(d.History))
		for i, snap := range d.History {
			h[i] = slices.Clone(snap)
		}
		d.History = h
	}
	return d
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue копирует JSON-подобное значение; скаляры копируются присваиванием.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case json.RawMessage:
		return slices.Clone(t)
	default:
		return v
	}
}

func live[T any](meta func(T) model.Record) func(T) bool {
	return func(v T) bool { return !meta(v).IsDeleted }
}

func dirty[T any](meta func(T) model.Record) func(T) bool {
	return func(v T) bool { return meta(v).SyncStatus.Dirty() }
}

func cardMeta(c model.Card) model.Record             { return c.Record }
func folderMeta(f model.Folder) model.Record         { return f.Record }
func documentMeta(d model.RichDocument) model.Record { return d.Record }

func cloneAll[T any](in []T, clone func(T) T) []T {
	for i := range in {
		in[i] = clone(in[i])
	}
	return in
}

// --- Cards ---

func (s *Store) GetCard(_ context.Context, id string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards.rows[id]
	if !ok {
		return nil, nil
	}
	c = cloneCard(c)
	return &c, nil
}

func (s *Store) GetAllCards(_ context.Context) ([]model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.cards.filter(live(cardMeta)), cloneCard), nil
}

func (s *Store) GetCardsByFolder(_ context.Context, folderID *string) ([]model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := s.cards.filter(func(c model.Card) bool {
		return !c.IsDeleted && sameID(c.FolderID, folderID)
	})
	return cloneAll(res, cloneCard), nil
}

func (s *Store) PutCard(_ context.Context, c model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards.put(c.ID, cloneCard(c))
	return nil
}

func (s *Store) BulkPutCards(_ context.Context, cards []model.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cards {
		s.cards.put(c.ID, cloneCard(c))
	}
	return nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards.delete(id)
	return nil
}

// --- Folders ---

func (s *Store) GetFolder(_ context.Context, id string) (*model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders.rows[id]
	if !ok {
		return nil, nil
	}
	f = cloneFolder(f)
	return &f, nil
}

func (s *Store) GetAllFolders(_ context.Context) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.folders.filter(live(folderMeta)), cloneFolder), nil
}

func (s *Store) GetFoldersByParent(_ context.Context, parentID *string) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := s.folders.filter(func(f model.Folder) bool {
		return !f.IsDeleted && sameID(f.ParentID, parentID)
	})
	return cloneAll(res, cloneFolder), nil
}

func (s *Store) PutFolder(_ context.Context, f model.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders.put(f.ID, cloneFolder(f))
	return nil
}

func (s *Store) BulkPutFolders(_ context.Context, folders []model.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range folders {
		s.folders.put(f.ID, cloneFolder(f))
	}
	return nil
}

func (s *Store) DeleteFolder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders.delete(id)
	return nil
}

// --- RichDocuments ---

func (s *Store) GetRichDocument(_ context.Context, id string) (*model.RichDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs.rows[id]
	if !ok {
		return nil, nil
	}
	d = cloneDocument(d)
	return &d, nil
}

func (s *Store) GetAllRichDocuments(_ context.Context) ([]model.RichDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.docs.filter(live(documentMeta)), cloneDocument), nil
}

func (s *Store) PutRichDocument(_ context.Context, d model.RichDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.put(d.ID, cloneDocument(d))
	return nil
}

func (s *Store) BulkPutRichDocuments(_ context.Context, docs []model.RichDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs.put(d.ID, cloneDocument(d))
	}
	return nil
}

func (s *Store) DeleteRichDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.delete(id)
	return nil
}

// --- Meta ---

func (s *Store) GetSyncMeta(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	return v, ok, nil
}

func (s *Store) SetSyncMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

func (s *Store) GetLastServerVersion(ctx context.Context) (int64, error) {
	raw, ok, err := s.GetSyncMeta(ctx, repo.MetaLastServerVersion)
	if err != nil {
		return 0, err
	}
	return repo.ParseVersion(raw, ok)
}

func (s *Store) ClearAllData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = newTable[model.Card]()
	s.folders = newTable[model.Folder]()
	s.docs = newTable[model.RichDocument]()
	s.meta = map[string]string{}
	return nil
}

// GetPendingChanges читает все три коллекции под одной блокировкой.
func (s *Store) GetPendingChanges(_ context.Context) (model.Changes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Changes{
		Cards:         cloneAll(s.cards.filter(dirty(cardMeta)), cloneCard),
		Folders:       cloneAll(s.folders.filter(dirty(folderMeta)), cloneFolder),
		RichDocuments: cloneAll(s.docs.filter(dirty(documentMeta)), cloneDocument),
	}, nil
}

// AckPushed сверяет updatedAt и пишет статус под одной блокировкой записи.
func (s *Store) AckPushed(_ context.Context, pushed model.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ack(s.cards, pushed.Cards, cardRecord, true)
	ack(s.folders, pushed.Folders, folderRecord, true)
	ack(s.docs, pushed.RichDocuments, documentRecord, false)
	return nil
}

func cardRecord(c *model.Card) *model.Record             { return &c.Record }
func folderRecord(f *model.Folder) *model.Record         { return &f.Record }
func documentRecord(d *model.RichDocument) *model.Record { return &d.Record }

func ack[T any](t *table[T], pushed []T, rec func(*T) *model.Record, hardDelete bool) {
	for i := range pushed {
		p := rec(&pushed[i])
		cur, ok := t.rows[p.ID]
		if !ok || rec(&cur).UpdatedAt != p.UpdatedAt {
			continue
		}
		if hardDelete && p.SyncStatus == model.StatusDeleted {
			t.delete(p.ID)
			continue
		}
		rec(&cur).SyncStatus = model.StatusSynced
		t.rows[p.ID] = cur
	}
}
