package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo/memory"
)

// --- Мок удалённого API ---
type mockRemote struct{ mock.Mock }

func (m *mockRemote) FullSync(ctx context.Context) (model.Changes, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).(model.Changes); ok {
		return v, args.Error(1)
	}
	return model.Changes{}, args.Error(1)
}

func (m *mockRemote) Pull(ctx context.Context, since int64) (model.Changes, error) {
	args := m.Called(ctx, since)
	if v, ok := args.Get(0).(model.Changes); ok {
		return v, args.Error(1)
	}
	return model.Changes{}, args.Error(1)
}

func (m *mockRemote) Push(ctx context.Context, ch model.Changes) error {
	return m.Called(ctx, ch).Error(0)
}

var _ Remote = (*mockRemote)(nil)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newManager(t *testing.T) (*SyncManager, *memory.Store, *mockRemote) {
	t.Helper()
	st := memory.New()
	rm := &mockRemote{}
	m := NewSyncManager(st, rm, nil)
	m.now = func() time.Time { return fixedNow }
	return m, st, rm
}

func card(id string, updatedAt, version int64, status model.SyncStatus) model.Card {
	return model.Card{
		Record: model.Record{ID: id, CreatedAt: 1, UpdatedAt: updatedAt, ServerVersion: version, SyncStatus: status},
		Title:  "card " + id,
	}
}

func folder(id string, updatedAt, version int64, status model.SyncStatus) model.Folder {
	return model.Folder{
		Record: model.Record{ID: id, CreatedAt: 1, UpdatedAt: updatedAt, ServerVersion: version, SyncStatus: status},
		Title:  "folder " + id,
	}
}

func document(id string, updatedAt, version int64, status model.SyncStatus) model.RichDocument {
	return model.RichDocument{
		Record:  model.Record{ID: id, CreatedAt: 1, UpdatedAt: updatedAt, ServerVersion: version, SyncStatus: status},
		Content: []byte(`{"type":"doc"}`),
	}
}

func mustCard(t *testing.T, st *memory.Store, id string) model.Card {
	t.Helper()
	c, err := st.GetCard(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c, "card %s not found", id)
	return *c
}

func lastVersion(t *testing.T, st *memory.Store) int64 {
	t.Helper()
	v, err := st.GetLastServerVersion(context.Background())
	require.NoError(t, err)
	return v
}

// statusRecorder собирает переходы статуса.
type statusRecorder struct {
	ch chan Status
}

func record(m *SyncManager) (*statusRecorder, func()) {
	r := &statusRecorder{ch: make(chan Status, 64)}
	unsub := m.Subscribe(func(s Status) { r.ch <- s })
	return r, unsub
}

func (r *statusRecorder) states() []State {
	var out []State
	for {
		select {
		case s := <-r.ch:
			out = append(out, s.State)
		default:
			return out
		}
	}
}
