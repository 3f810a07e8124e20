package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Flomo/internal/cli/model"
	"Flomo/internal/config"
)

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

// lockedBuffer - буфер для вывода из фоновых горутин.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	return &config.Config{
		ServerURL:          serverURL,
		ClientDBPath:       filepath.Join(t.TempDir(), "flomo.db"),
		SyncInterval:       time.Minute,
		RequestAttempts:    1,
		RequestBaseTimeout: time.Second,
		RequestMaxTimeout:  time.Second,
	}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, int) {
	t.Helper()
	var code int
	out := withStdoutCapture(t, func() { code = Dispatch(context.Background(), cfg, args) })
	return out, code
}

var idRe = regexp.MustCompile(`id:\s+(\S+)`)

func createdID(t *testing.T, out string) string {
	t.Helper()
	m := idRe.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in output: %q", out)
	return m[1]
}

// fakeServer - минимальный сервер синхронизации в памяти.
type fakeServer struct {
	mu       sync.Mutex
	snapshot model.Changes
	delta    model.Changes
	pushed   []model.Changes
	pulls    int
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync/full", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.snapshot)
	})
	mux.HandleFunc("/api/sync/pull", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.pulls++
		_ = json.NewEncoder(w).Encode(s.delta)
	})
	mux.HandleFunc("/api/sync/push", func(w http.ResponseWriter, r *http.Request) {
		var ch model.Changes
		if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.pushed = append(s.pushed, ch)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *fakeServer) setSnapshot(ch model.Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = ch
}

func (s *fakeServer) setDelta(ch model.Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delta = ch
}

func (s *fakeServer) pushedBatches() []model.Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Changes(nil), s.pushed...)
}

func (s *fakeServer) pullCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulls
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	fs := &fakeServer{}
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)
	return fs, srv.URL
}
