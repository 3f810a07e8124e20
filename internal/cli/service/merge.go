package service

import (
	"context"

	"Flomo/internal/cli/model"
)

// recordOf даёт доступ к общей части сущности.
type recordOf[T any] func(*T) *model.Record

func cardRecord(c *model.Card) *model.Record             { return &c.Record }
func folderRecord(f *model.Folder) *model.Record         { return &f.Record }
func documentRecord(d *model.RichDocument) *model.Record { return &d.Record }

func markSynced[T any](in []T, rec recordOf[T]) []T {
	out := make([]T, len(in))
	copy(out, in)
	for i := range out {
		rec(&out[i]).SyncStatus = model.StatusSynced
	}
	return out
}

func onlyDirty[T any](in []T, rec recordOf[T]) []T {
	out := make([]T, 0, len(in))
	for i := range in {
		if rec(&in[i]).SyncStatus.Dirty() {
			out = append(out, in[i])
		}
	}
	return out
}

// latestByID оставляет по одной записи на id, побеждает более новая по LWW.
// Порядок первых вхождений сохраняется.
func latestByID[T any](in []T, rec recordOf[T]) []T {
	idx := make(map[string]int, len(in))
	out := make([]T, 0, len(in))
	for i := range in {
		r := rec(&in[i])
		if j, ok := idx[r.ID]; ok {
			if r.Newer(*rec(&out[j])) {
				out[j] = in[i]
			}
			continue
		}
		idx[r.ID] = len(out)
		out = append(out, in[i])
	}
	return out
}

// applyRemote применяет входящие записи по правилу last-write-wins:
// удалённая запись заменяет локальную, если локальной нет, либо updatedAt больше,
// либо updatedAt равен и serverVersion больше. Принятые записи помечаются synced.
func applyRemote[T any](
	ctx context.Context,
	incoming []T,
	rec recordOf[T],
	get func(context.Context, string) (*T, error),
	put func(context.Context, []T) error,
) error {
	if len(incoming) == 0 {
		return nil
	}
	accepted := make([]T, 0, len(incoming))
	for _, remote := range latestByID(incoming, rec) {
		r := rec(&remote)
		local, err := get(ctx, r.ID)
		if err != nil {
			return err
		}
		if local != nil && !r.Newer(*rec(local)) {
			continue
		}
		r.SyncStatus = model.StatusSynced
		accepted = append(accepted, remote)
	}
	if len(accepted) == 0 {
		return nil
	}
	return put(ctx, accepted)
}
