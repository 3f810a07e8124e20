package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"Flomo/internal/cli/api"
	reposqlite "Flomo/internal/cli/repo/sqlite"
	"Flomo/internal/cli/service"
	"Flomo/internal/config"
)

// App - собранные зависимости клиента.
type App struct {
	Store    *reposqlite.Store
	Remote   *api.Client
	Entities *service.Entities
	Sync     *service.SyncManager
}

// OpenStore открывает локальную базу по пути из конфигурации и выполняет миграции.
// cleanup необходимо вызвать после окончания работы, чтобы закрыть соединение с БД.
func OpenStore(cfg *config.Config) (*reposqlite.Store, func() error, error) {
	st, err := reposqlite.Open(cfg.ClientDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open client db: %w", err)
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("migrate client db: %w", err)
	}
	return st, st.Close, nil
}

// RetryPolicy строит политику повторов из конфигурации.
func RetryPolicy(cfg *config.Config) api.RetryPolicy {
	return api.RetryPolicy{
		Attempts:    cfg.RequestAttempts,
		BaseTimeout: cfg.RequestBaseTimeout,
		MaxTimeout:  cfg.RequestMaxTimeout,
		Delay:       api.DefaultRetryPolicy().Delay,
	}
}

// Open собирает приложение: хранилище, клиент API, сервис сущностей и менеджер синхронизации.
// notifier может быть nil: тогда ошибки запросов только логируются.
func Open(cfg *config.Config, logger *zap.SugaredLogger, notifier api.Notifier) (*App, func() error, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	st, cleanup, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	remote := api.NewClient(cfg.ServerURL, api.Options{
		Policy:   RetryPolicy(cfg),
		Logger:   logger.Named("api"),
		Notifier: notifier,
	})
	app := &App{
		Store:    st,
		Remote:   remote,
		Entities: service.NewEntities(st, logger.Named("entities")),
		Sync:     service.NewSyncManager(st, remote, logger.Named("sync")),
	}
	return app, cleanup, nil
}
