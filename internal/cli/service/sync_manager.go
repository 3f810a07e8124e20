package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Flomo/internal/cli/model"
	"Flomo/internal/cli/repo"
)

// DefaultSyncInterval - период автосинхронизации по умолчанию.
const DefaultSyncInterval = 30 * time.Second

// Remote - удалённый API синхронизации (реализуется api.Client).
type Remote interface {
	FullSync(ctx context.Context) (model.Changes, error)
	Pull(ctx context.Context, since int64) (model.Changes, error)
	Push(ctx context.Context, changes model.Changes) error
}

// SyncManager согласует локальное хранилище с сервером.
// Одновременно выполняется не более одной синхронизации: повторный вызов
// во время работы логируется и ничего не делает.
type SyncManager struct {
	store  repo.Store
	remote Remote
	logger *zap.SugaredLogger
	now    func() time.Time

	running atomic.Bool
	status  broadcaster

	autoMu sync.Mutex
	auto   *autoLoop
}

// autoLoop - один запуск автосинхронизации.
type autoLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
	// syncing выставляется на время Sync цикла: слушатели статуса
	// в этот момент вызываются на горутине цикла, ждать done из них нельзя.
	syncing atomic.Bool
}

// stop отменяет цикл и ждёт его выхода, если цикл не внутри Sync.
func (l *autoLoop) stop() bool {
	if l == nil {
		return false
	}
	l.cancel()
	if !l.syncing.Load() {
		<-l.done
	}
	return true
}

// NewSyncManager создаёт менеджер. logger может быть nil.
func NewSyncManager(store repo.Store, remote Remote, logger *zap.SugaredLogger) *SyncManager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := &SyncManager{
		store:  store,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
	m.status.current = Status{State: StateIdle}
	return m
}

// Status возвращает текущее состояние.
func (m *SyncManager) Status() Status {
	return m.status.get()
}

// Subscribe регистрирует слушателя. Текущий статус доставляется сразу,
// затем каждый переход до вызова возвращённой функции отписки.
func (m *SyncManager) Subscribe(fn Listener) (unsubscribe func()) {
	return m.status.subscribe(fn)
}

func (m *SyncManager) setState(s State) {
	cur := m.status.get()
	m.status.set(Status{State: s, LastSyncTime: cur.LastSyncTime})
}

func (m *SyncManager) setIdle(last time.Time) {
	if last.IsZero() {
		last = m.status.get().LastSyncTime
	}
	m.status.set(Status{State: StateIdle, LastSyncTime: last})
}

func (m *SyncManager) setError(err error) {
	cur := m.status.get()
	m.status.set(Status{State: StateError, LastSyncTime: cur.LastSyncTime, Error: err.Error()})
}

func (m *SyncManager) acquire(op string) bool {
	if m.running.CompareAndSwap(false, true) {
		return true
	}
	m.logger.Infow("Sync already in progress, skipping", "operation", op)
	return false
}

func (m *SyncManager) release() { m.running.Store(false) }

// FullSync заменяет локальные данные полным снимком сервера.
// Несинхронизированные локальные правки теряются. Ошибка возвращается вызывающему.
func (m *SyncManager) FullSync(ctx context.Context) error {
	if !m.acquire("full-sync") {
		return nil
	}
	defer m.release()

	m.setState(StateFullSync)
	last, err := m.fullSync(ctx)
	if err != nil {
		m.logger.Errorw("Full sync failed", "error", err)
		m.setError(err)
		return err
	}
	m.setIdle(last)
	return nil
}

func (m *SyncManager) fullSync(ctx context.Context) (time.Time, error) {
	snapshot, err := m.remote.FullSync(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	prev, err := m.store.GetLastServerVersion(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if err := m.store.ClearAllData(ctx); err != nil {
		return time.Time{}, fmt.Errorf("clear local data: %w", err)
	}

	cards := markSynced(snapshot.Cards, cardRecord)
	folders := markSynced(snapshot.Folders, folderRecord)
	docs := markSynced(snapshot.RichDocuments, documentRecord)
	if err := m.store.BulkPutCards(ctx, cards); err != nil {
		return time.Time{}, fmt.Errorf("store cards: %w", err)
	}
	if err := m.store.BulkPutFolders(ctx, folders); err != nil {
		return time.Time{}, fmt.Errorf("store folders: %w", err)
	}
	if err := m.store.BulkPutRichDocuments(ctx, docs); err != nil {
		return time.Time{}, fmt.Errorf("store rich documents: %w", err)
	}

	version := max(prev, snapshot.MaxServerVersion())
	if err := m.saveVersion(ctx, version); err != nil {
		return time.Time{}, err
	}
	now := m.now()
	if err := m.saveSyncTime(ctx, now); err != nil {
		return time.Time{}, err
	}
	m.logger.Infow("Full sync completed",
		"cards", len(cards), "folders", len(folders), "richDocuments", len(docs),
		"lastServerVersion", version)
	return now, nil
}

// Sync - push, затем pull, затем lastSyncTime. Ошибки не возвращаются:
// они переводят менеджер в StateError, следующий вызов повторит попытку.
func (m *SyncManager) Sync(ctx context.Context) {
	if !m.acquire("sync") {
		return
	}
	defer m.release()

	m.setState(StateSyncing)
	if err := m.sync(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			m.logger.Infow("Sync interrupted", "error", err)
			m.setIdle(time.Time{})
			return
		}
		m.logger.Errorw("Sync failed", "error", err)
		m.setError(err)
		return
	}
}

func (m *SyncManager) sync(ctx context.Context) error {
	if err := m.push(ctx); err != nil {
		return err
	}
	if err := m.pull(ctx); err != nil {
		return err
	}
	now := m.now()
	if err := m.saveSyncTime(ctx, now); err != nil {
		return err
	}
	m.setIdle(now)
	return nil
}

// PushChanges отправляет локальные изменения отдельно от полного цикла.
func (m *SyncManager) PushChanges(ctx context.Context) error {
	if !m.acquire("push") {
		return nil
	}
	defer m.release()
	if err := m.push(ctx); err != nil {
		m.setError(err)
		return err
	}
	m.setIdle(time.Time{})
	return nil
}

// PullChanges забирает изменения сервера отдельно от полного цикла.
func (m *SyncManager) PullChanges(ctx context.Context) error {
	if !m.acquire("pull") {
		return nil
	}
	defer m.release()
	if err := m.pull(ctx); err != nil {
		m.setError(err)
		return err
	}
	m.setIdle(time.Time{})
	return nil
}

func (m *SyncManager) push(ctx context.Context) error {
	m.setState(StatePush)

	pending, err := m.store.GetPendingChanges(ctx)
	if err != nil {
		return fmt.Errorf("read pending changes: %w", err)
	}
	batch := model.Changes{
		Cards:         onlyDirty(pending.Cards, cardRecord),
		Folders:       onlyDirty(pending.Folders, folderRecord),
		RichDocuments: onlyDirty(pending.RichDocuments, documentRecord),
	}
	if batch.Empty() {
		m.logger.Debugw("Nothing to push")
		return nil
	}

	if err := m.remote.Push(ctx, batch); err != nil {
		return fmt.Errorf("push changes: %w", err)
	}

	// Сервер подтвердил пакет. Записи, изменённые локально уже после снимка,
	// остаются грязными до следующего push; документы не удаляются физически,
	// на них могут ссылаться карточки.
	if err := m.store.AckPushed(ctx, batch); err != nil {
		return fmt.Errorf("ack pushed changes: %w", err)
	}
	m.logger.Infow("Pushed local changes",
		"cards", len(batch.Cards), "folders", len(batch.Folders), "richDocuments", len(batch.RichDocuments))
	return nil
}

func (m *SyncManager) pull(ctx context.Context) error {
	m.setState(StatePull)

	since, err := m.store.GetLastServerVersion(ctx)
	if err != nil {
		return err
	}
	delta, err := m.remote.Pull(ctx, since)
	if err != nil {
		return fmt.Errorf("pull changes: %w", err)
	}
	if delta.Empty() {
		m.logger.Debugw("Nothing to pull", "since", since)
		return nil
	}

	// коллекции независимы, применяем параллельно
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return applyRemote(gctx, delta.Cards, cardRecord, m.store.GetCard, m.store.BulkPutCards)
	})
	g.Go(func() error {
		return applyRemote(gctx, delta.Folders, folderRecord, m.store.GetFolder, m.store.BulkPutFolders)
	})
	g.Go(func() error {
		return applyRemote(gctx, delta.RichDocuments, documentRecord, m.store.GetRichDocument, m.store.BulkPutRichDocuments)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("apply pulled changes: %w", err)
	}

	version := max(since, delta.MaxServerVersion())
	if err := m.saveVersion(ctx, version); err != nil {
		return err
	}
	m.logger.Infow("Pulled remote changes", "received", delta.Len(), "since", since, "lastServerVersion", version)
	return nil
}

func (m *SyncManager) saveVersion(ctx context.Context, v int64) error {
	if err := m.store.SetSyncMeta(ctx, repo.MetaLastServerVersion, strconv.FormatInt(v, 10)); err != nil {
		return fmt.Errorf("save %s: %w", repo.MetaLastServerVersion, err)
	}
	return nil
}

func (m *SyncManager) saveSyncTime(ctx context.Context, t time.Time) error {
	if err := m.store.SetSyncMeta(ctx, repo.MetaLastSyncTime, strconv.FormatInt(t.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("save %s: %w", repo.MetaLastSyncTime, err)
	}
	return nil
}

// StartAutoSync запускает периодическую синхронизацию: один Sync сразу,
// затем каждые interval. Предыдущий цикл отменяется; новый начинает работу
// после его выхода. Можно вызывать из слушателя статуса.
func (m *SyncManager) StartAutoSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &autoLoop{cancel: cancel, done: make(chan struct{})}

	m.autoMu.Lock()
	prev := m.auto
	m.auto = l
	m.autoMu.Unlock()

	var prevDone <-chan struct{}
	if prev != nil {
		prev.cancel()
		prevDone = prev.done
	}
	go m.runAuto(ctx, l, interval, prevDone)
	m.logger.Infow("Auto sync started", "interval", interval)
}

func (m *SyncManager) runAuto(ctx context.Context, l *autoLoop, interval time.Duration, prevDone <-chan struct{}) {
	defer close(l.done)
	if prevDone != nil {
		<-prevDone
	}

	tick := func() {
		if ctx.Err() != nil {
			return
		}
		l.syncing.Store(true)
		defer l.syncing.Store(false)
		m.Sync(ctx)
	}

	tick()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}

// StopAutoSync останавливает цикл. Вне Sync ждёт выхода цикла; во время Sync
// (например, из слушателя статуса) только отменяет его контекст, и цикл
// завершается сразу после текущего Sync. Повторный вызов безопасен.
func (m *SyncManager) StopAutoSync() {
	m.autoMu.Lock()
	l := m.auto
	m.auto = nil
	m.autoMu.Unlock()

	if l.stop() {
		m.logger.Infow("Auto sync stopped")
	}
}
