package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Flomo/internal/model"
	"Flomo/internal/repo"
)

// ErrInvalidBatch - пакет push содержит некорректные записи.
var ErrInvalidBatch = errors.New("invalid push batch")

// SyncService - логика сервера синхронизации.
type SyncService struct {
	repo   repo.SyncRepository
	logger *zap.SugaredLogger
}

func NewSyncService(r repo.SyncRepository, logger *zap.SugaredLogger) *SyncService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SyncService{repo: r, logger: logger}
}

// Full - полный снимок без tombstones.
func (s *SyncService) Full(ctx context.Context) (model.Batch, error) {
	return s.repo.Snapshot(ctx)
}

// Pull - изменения после версии since.
func (s *SyncService) Pull(ctx context.Context, since int64) (model.Batch, error) {
	if since < 0 {
		since = 0
	}
	return s.repo.ChangesSince(ctx, since)
}

// Push применяет пакет клиента. Пустой ключ идемпотентности допустим,
// но тогда повтор запроса применится повторно.
func (s *SyncService) Push(ctx context.Context, key string, batch model.Batch) (repo.PushResult, error) {
	if err := validate(batch); err != nil {
		return repo.PushResult{}, err
	}
	res, err := s.repo.ApplyPush(ctx, key, batch)
	if err != nil {
		return res, err
	}
	if res.Duplicate {
		s.logger.Infow("Push already applied", "key", key, "version", res.Version)
		return res, nil
	}
	s.logger.Infow("Push applied",
		"key", key, "received", batch.Len(), "applied", res.Applied, "skipped", res.Skipped, "version", res.Version)
	return res, nil
}

// PrunePushKeys удаляет ключи идемпотентности старше ttl.
func (s *SyncService) PrunePushKeys(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.repo.PrunePushKeys(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("prune push keys: %w", err)
	}
	if n > 0 {
		s.logger.Infow("Pruned push keys", "count", n, "ttl", ttl)
	}
	return n, nil
}

// RunPushKeyJanitor чистит ключи идемпотентности каждые every, пока жив ctx.
// Ошибка очистки только логируется: следующий тик попробует снова.
func (s *SyncService) RunPushKeyJanitor(ctx context.Context, ttl, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.PrunePushKeys(ctx, ttl); err != nil && ctx.Err() == nil {
				s.logger.Warnw("Push key cleanup failed", "error", err)
			}
		}
	}
}

func validate(b model.Batch) error {
	for _, c := range b.Cards {
		if err := validMeta("card", c.Meta); err != nil {
			return err
		}
	}
	for _, f := range b.Folders {
		if err := validMeta("folder", f.Meta); err != nil {
			return err
		}
	}
	for _, d := range b.RichDocuments {
		if err := validMeta("richDocument", d.Meta); err != nil {
			return err
		}
	}
	return nil
}

func validMeta(kind string, m model.Meta) error {
	if m.ID == "" {
		return fmt.Errorf("%w: %s without id", ErrInvalidBatch, kind)
	}
	if m.UpdatedAt < 0 || m.CreatedAt < 0 {
		return fmt.Errorf("%w: %s %s has negative timestamp", ErrInvalidBatch, kind, m.ID)
	}
	return nil
}
