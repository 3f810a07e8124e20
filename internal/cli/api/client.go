package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"Flomo/internal/cli/model"
)

// Пути API синхронизации.
const (
	FullSyncPath = "/api/sync/full"
	PullPath     = "/api/sync/pull"
	PushPath     = "/api/sync/push"

	// IdempotencyHeader несёт ключ, общий для всех попыток одного запроса.
	IdempotencyHeader = "Idempotency-Key"
)

// Options - необязательные зависимости клиента.
type Options struct {
	HTTPClient *http.Client
	Policy     RetryPolicy
	Logger     *zap.SugaredLogger
	Notifier   Notifier
}

// Client - клиент удалённого API синхронизации.
type Client struct {
	baseURL  string
	http     *http.Client
	policy   RetryPolicy
	logger   *zap.SugaredLogger
	notifier Notifier
}

// NewClient создаёт клиент для сервера baseURL (схема обязательна).
// Нулевая политика заменяется на DefaultRetryPolicy.
func NewClient(baseURL string, opts Options) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     opts.HTTPClient,
		policy:   opts.Policy,
		logger:   opts.Logger,
		notifier: opts.Notifier,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.policy.Attempts == 0 && c.policy.BaseTimeout == 0 {
		c.policy = DefaultRetryPolicy()
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{Logger: c.logger}
	}
	return c
}

// FullSync запрашивает полный снимок данных сервера.
func (c *Client) FullSync(ctx context.Context) (model.Changes, error) {
	var ch model.Changes
	body, err := c.do(ctx, http.MethodGet, FullSyncPath, nil, "")
	if err != nil {
		return ch, err
	}
	if err := json.Unmarshal(body, &ch); err != nil {
		return ch, fmt.Errorf("decode full sync response: %w", err)
	}
	return ch, nil
}

// Pull запрашивает записи с serverVersion > since, включая tombstones.
func (c *Client) Pull(ctx context.Context, since int64) (model.Changes, error) {
	var ch model.Changes
	body, err := c.do(ctx, http.MethodGet, PullPath+"?since="+strconv.FormatInt(since, 10), nil, "")
	if err != nil {
		return ch, err
	}
	if err := json.Unmarshal(body, &ch); err != nil {
		return ch, fmt.Errorf("decode pull response: %w", err)
	}
	return ch, nil
}

// Push отправляет локальные изменения одним пакетом.
// Ключ идемпотентности генерируется один раз и повторяется во всех попытках.
func (c *Client) Push(ctx context.Context, ch model.Changes) error {
	b, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, PushPath, b, uuid.NewString())
	return err
}

// do выполняет запрос с повторами через go-retry. Сетевые ошибки и таймауты
// помечаются retryable, не-2xx ответ прерывает цикл сразу.
func (c *Client) do(ctx context.Context, method, path string, body []byte, idemKey string) ([]byte, error) {
	var (
		respBody []byte
		tries    int
	)
	err := retry.Do(ctx, c.policy.backoff(), func(ctx context.Context) error {
		n := tries
		tries++
		b, err := c.attempt(ctx, method, path, body, idemKey, n)
		if err == nil {
			respBody = b
			return nil
		}
		if ctx.Err() != nil || !c.policy.retryable(err) {
			return err
		}
		if tries < c.policy.attempts() {
			c.logger.Warnw("Sync request attempt failed",
				"method", method, "path", path, "attempt", tries, "error", err)
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return respBody, nil
	}
	err = fmt.Errorf("%s %s failed after %d attempt(s): %w", method, path, tries, err)
	c.report(err)
	return nil, err
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, idemKey string, attempt int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout(attempt))
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set(IdempotencyHeader, idemKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

// report показывает ошибку пользователю; 409 подавляется.
func (c *Client) report(err error) {
	if errors.Is(err, ErrConflict) {
		c.logger.Infow("Conflict response suppressed from notifications", "error", err)
		return
	}
	c.notifier.Notify(err.Error())
}
