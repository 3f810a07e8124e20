package memory

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo"
)

func TestStore_CardsLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	f1 := "f1"

	require.NoError(t, s.BulkPutCards(ctx, []model.Card{
		{Record: model.Record{ID: "a", SyncStatus: model.StatusSynced}},
		{Record: model.Record{ID: "b", SyncStatus: model.StatusPending}, FolderID: &f1},
		{Record: model.Record{ID: "c", IsDeleted: true, SyncStatus: model.StatusDeleted}},
	}))

	all, err := s.GetAllCards(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)

	top, err := s.GetCardsByFolder(ctx, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].ID)

	other := "f1"
	inF1, err := s.GetCardsByFolder(ctx, &other)
	require.NoError(t, err)
	require.Len(t, inF1, 1)
	assert.Equal(t, "b", inF1[0].ID)

	require.NoError(t, s.DeleteCard(ctx, "b"))
	require.NoError(t, s.DeleteCard(ctx, "b"))
	got, err := s.GetCard(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.PutCard(ctx, model.Card{Record: model.Record{ID: "a"}, Payload: map[string]any{"k": "v"}}))

	got, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	got.Payload["k"] = "mutated"

	again, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Payload["k"])
}

func TestStore_PendingAndClear(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.PutFolder(ctx, model.Folder{Record: model.Record{ID: "f", SyncStatus: model.StatusDeleted, IsDeleted: true}}))
	require.NoError(t, s.PutRichDocument(ctx, model.RichDocument{Record: model.Record{ID: "d", SyncStatus: model.StatusSynced}}))
	require.NoError(t, s.SetSyncMeta(ctx, repo.MetaLastServerVersion, "12"))

	ch, err := s.GetPendingChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, ch.Cards)
	require.Len(t, ch.Folders, 1)
	assert.Empty(t, ch.RichDocuments)

	v, err := s.GetLastServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	require.NoError(t, s.ClearAllData(ctx))
	v, err = s.GetLastServerVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
	f, err := s.GetFolder(ctx, "f")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestStore_NestedPayloadIsCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	in := map[string]any{
		"meta": map[string]any{"lang": "ru"},
		"tags": []any{"a", map[string]any{"x": 1.0}},
	}
	require.NoError(t, s.PutCard(ctx, model.Card{Record: model.Record{ID: "a"}, Payload: in}))
	// вызывающий меняет исходную map уже после записи
	in["meta"].(map[string]any)["lang"] = "en"

	got, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	got.Payload["meta"].(map[string]any)["lang"] = "de"
	got.Payload["tags"].([]any)[1].(map[string]any)["x"] = 2.0

	again, err := s.GetCard(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ru", again.Payload["meta"].(map[string]any)["lang"])
	assert.Equal(t, 1.0, again.Payload["tags"].([]any)[1].(map[string]any)["x"])
}

func TestStore_AckPushed(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec := func(id string, at int64, status model.SyncStatus) model.Record {
		return model.Record{ID: id, UpdatedAt: at, IsDeleted: status == model.StatusDeleted, SyncStatus: status}
	}
	require.NoError(t, s.BulkPutCards(ctx, []model.Card{
		{Record: rec("same", 10, model.StatusPending)},
		{Record: rec("edited", 10, model.StatusPending)},
		{Record: rec("gone", 10, model.StatusDeleted)},
	}))
	require.NoError(t, s.PutFolder(ctx, model.Folder{Record: rec("fgone", 10, model.StatusDeleted)}))
	require.NoError(t, s.PutRichDocument(ctx, model.RichDocument{Record: rec("dgone", 10, model.StatusDeleted)}))

	pushed, err := s.GetPendingChanges(ctx)
	require.NoError(t, err)

	// правка из UI между снимком и подтверждением
	require.NoError(t, s.PutCard(ctx, model.Card{Record: rec("edited", 11, model.StatusPending), Title: "new"}))
	require.NoError(t, s.AckPushed(ctx, pushed))

	same, err := s.GetCard(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, same.SyncStatus)

	edited, err := s.GetCard(ctx, "edited")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, edited.SyncStatus)
	assert.Equal(t, "new", edited.Title)

	gone, err := s.GetCard(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, gone)
	fgone, err := s.GetFolder(ctx, "fgone")
	require.NoError(t, err)
	assert.Nil(t, fgone)

	doc, err := s.GetRichDocument(ctx, "dgone")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc.IsDeleted)
	assert.Equal(t, model.StatusSynced, doc.SyncStatus)

	left, err := s.GetPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, left.Cards, 1)
	assert.Equal(t, "edited", left.Cards[0].ID)
}

// Каждый снимок pending должен быть префиксом последовательности записей:
// без пропусков и без потерянных id.
func TestStore_PendingSnapshotUnderConcurrentWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 200
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for i := 0; i < n; i++ {
			c := model.Card{Record: model.Record{ID: fmt.Sprintf("c%04d", i), SyncStatus: model.StatusPending}}
			if err := s.PutCard(ctx, c); err != nil {
				errs <- err
				return
			}
		}
	}()

	done := false
	for !done {
		select {
		case err, ok := <-errs:
			require.NoError(t, err)
			done = !ok
		default:
		}
		ch, err := s.GetPendingChanges(ctx)
		require.NoError(t, err)
		requirePrefix(t, ch.Cards)
	}

	ch, err := s.GetPendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, ch.Cards, n)
	requirePrefix(t, ch.Cards)
}

func requirePrefix(t *testing.T, cards []model.Card) {
	t.Helper()
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	sort.Strings(ids)
	for i, id := range ids {
		require.Equal(t, fmt.Sprintf("c%04d", i), id, "snapshot of %d cards has a gap", len(ids))
	}
}
