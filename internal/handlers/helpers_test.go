package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"Flomo/internal/config"
	"Flomo/internal/repo"
	"Flomo/internal/service"
)

// newTestDB поднимает изолированную in-memory SQLite на тест
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file:" + name + "?mode=memory&cache=shared"}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repo.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{RateLimitRPS: 1000, RateLimitBurst: 1000}
}

// newTestHandler собирает роутер поверх настоящего репозитория
func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	logger := zap.NewNop().Sugar()
	svc := service.NewSyncService(repo.NewSyncRepository(newTestDB(t)), logger)
	return NewHandler(svc, logger, cfg)
}

func doRequest(h *Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Router.ServeHTTP(rec, req)
	return rec
}

func push(h *Handler, key, body string) *httptest.ResponseRecorder {
	return doRequest(h, http.MethodPost, "/api/sync/push", body, map[string]string{IdempotencyHeader: key})
}
