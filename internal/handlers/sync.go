package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"Flomo/internal/model"
	"Flomo/internal/repo"
	"Flomo/internal/service"
)

// IdempotencyHeader - заголовок с ключом идемпотентности push.
const IdempotencyHeader = "Idempotency-Key"

// maxPushBody ограничивает размер тела push.
const maxPushBody = 32 << 20

// SyncHandler обрабатывает full/pull/push.
type SyncHandler struct {
	SyncService *service.SyncService
	Logger      *zap.SugaredLogger
}

// NewSyncHandler создаёт хендлер синхронизации
func NewSyncHandler(syncService *service.SyncService, logger *zap.SugaredLogger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SyncHandler{SyncService: syncService, Logger: logger}
}

// PushResponse - ответ на push. Клиенту достаточно статуса 200.
type PushResponse struct {
	Applied   int   `json:"applied"`
	Skipped   int   `json:"skipped"`
	Version   int64 `json:"version"`
	Duplicate bool  `json:"duplicate,omitempty"`
}

// Full отдаёт полный снимок
func (h *SyncHandler) Full(w http.ResponseWriter, r *http.Request) {
	b, err := h.SyncService.Full(r.Context())
	if err != nil {
		h.Logger.Errorw("Full sync: snapshot failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Pull отдаёт изменения после ?since=N
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = v
	}
	b, err := h.SyncService.Pull(r.Context(), since)
	if err != nil {
		h.Logger.Errorw("Pull: query failed", "since", since, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Push применяет пакет изменений клиента
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	var batch model.Batch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPushBody)).Decode(&batch); err != nil {
		h.Logger.Warnw("Push: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	res, err := h.SyncService.Push(r.Context(), key, batch)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, repo.ErrIDCollision):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		h.Logger.Errorw("Push: apply failed", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PushResponse{
		Applied:   res.Applied,
		Skipped:   res.Skipped,
		Version:   res.Version,
		Duplicate: res.Duplicate,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
