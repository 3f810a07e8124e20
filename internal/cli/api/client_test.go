package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Flomo/internal/cli/model"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseTimeout: 50 * time.Millisecond, MaxTimeout: 200 * time.Millisecond}
}

func TestRetryPolicy_AttemptTimeout(t *testing.T) {
	p := RetryPolicy{Attempts: 5, BaseTimeout: time.Second, MaxTimeout: 5 * time.Second}
	assert.Equal(t, time.Second, p.AttemptTimeout(0))
	assert.Equal(t, 2*time.Second, p.AttemptTimeout(1))
	assert.Equal(t, 4*time.Second, p.AttemptTimeout(2))
	assert.Equal(t, 5*time.Second, p.AttemptTimeout(3))
	assert.Equal(t, 5*time.Second, p.AttemptTimeout(10))
}

func TestClient_FullSync_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, FullSyncPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"card":[{"id":"c1","title":"t","createdAt":1,"updatedAt":2,"serverVersion":7,"isDeleted":false}],"folder":[],"richDocument":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Policy: fastPolicy()})
	ch, err := c.FullSync(context.Background())
	require.NoError(t, err)
	require.Len(t, ch.Cards, 1)
	assert.Equal(t, "c1", ch.Cards[0].ID)
	assert.Equal(t, int64(7), ch.Cards[0].ServerVersion)
}

func TestClient_Pull_SendsSince(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PullPath, r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("since"))
		_, _ = io.WriteString(w, `{"card":[],"folder":[{"id":"f1","title":"x","updatedAt":5,"serverVersion":43,"isDeleted":true}],"richDocument":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Policy: fastPolicy()})
	ch, err := c.Pull(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, ch.Folders, 1)
	assert.True(t, ch.Folders[0].IsDeleted)
}

func TestClient_Push_SameIdempotencyKeyAcrossRetries(t *testing.T) {
	var (
		hits atomic.Int32
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		mu.Lock()
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		mu.Unlock()

		var body model.Changes
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if n == 1 {
			// первая попытка не укладывается в таймаут
			time.Sleep(120 * time.Millisecond)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Policy: fastPolicy()})
	err := c.Push(context.Background(), model.Changes{Cards: []model.Card{{Record: model.Record{ID: "c1"}}}})
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
}

func TestClient_Push_NewKeyPerCall(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(IdempotencyHeader))
		mu.Unlock()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Policy: fastPolicy()})
	require.NoError(t, c.Push(context.Background(), model.Changes{}))
	require.NoError(t, c.Push(context.Background(), model.Changes{}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1])
}

func TestClient_StatusError_NotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := &recordingNotifier{}
	c := NewClient(srv.URL, Options{Policy: fastPolicy(), Notifier: n})
	_, err := c.Pull(context.Background(), 0)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "boom", se.Body)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, n.count())
}

func TestClient_Conflict_SuppressedFromNotifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "id already used", http.StatusConflict)
	}))
	defer srv.Close()

	n := &recordingNotifier{}
	c := NewClient(srv.URL, Options{Policy: fastPolicy(), Notifier: n})
	err := c.Push(context.Background(), model.Changes{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 0, n.count())
}

func TestClient_NetworkError_ExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	n := &recordingNotifier{}
	c := NewClient(srv.URL, Options{
		Policy:   RetryPolicy{Attempts: 3, BaseTimeout: 20 * time.Millisecond, MaxTimeout: 40 * time.Millisecond},
		Notifier: n,
	})
	_, err := c.FullSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 1, n.count())
}

func TestClient_CustomRetryable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(150 * time.Millisecond)
	}))
	defer srv.Close()

	p := fastPolicy()
	p.Retryable = func(error) bool { return false }
	c := NewClient(srv.URL, Options{Policy: p, Notifier: &recordingNotifier{}})
	_, err := c.FullSync(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{Attempts: 4, Delay: 100 * time.Millisecond, MaxTimeout: 250 * time.Millisecond}
	b := p.backoff()
	for _, want := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond} {
		d, stop := b.Next()
		require.False(t, stop)
		assert.Equal(t, want, d)
	}
	_, stop := b.Next()
	assert.True(t, stop, "после attempts-1 повторов backoff останавливается")

	// без паузы повтор сразу
	b = RetryPolicy{Attempts: 2}.backoff()
	d, stop := b.Next()
	assert.False(t, stop)
	assert.Zero(t, d)
	_, stop = b.Next()
	assert.True(t, stop)
}

func TestClient_WaitsBetweenAttempts(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{
		Policy: RetryPolicy{
			Attempts: 2, BaseTimeout: 20 * time.Millisecond, MaxTimeout: time.Second,
			Delay: 150 * time.Millisecond,
		},
		Notifier: &recordingNotifier{},
	})
	_, err := c.FullSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 150*time.Millisecond)
}

func TestClient_ContextCanceledDuringBackoff(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{
		Policy: RetryPolicy{
			Attempts: 3, BaseTimeout: 20 * time.Millisecond, MaxTimeout: 5 * time.Second,
			Delay: 5 * time.Second,
		},
		Notifier: &recordingNotifier{},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FullSync(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(1), hits.Load())
}
