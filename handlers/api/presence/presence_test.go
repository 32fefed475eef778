package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"gameboard-server/core"
	registry "gameboard-server/presence"
	"gameboard-server/stores/guard"
	"gameboard-server/stores/memory"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Mock registry for testing error paths
type mockRegistry struct {
	mu         sync.Mutex
	entries    []core.PresenceEntry
	err        error
	registered int
}

func (m *mockRegistry) Register(ctx context.Context, nickname, participantID string) (core.PresenceEntry, error) {
	if m.err != nil {
		return core.PresenceEntry{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered++
	e := core.PresenceEntry{Nickname: nickname, ParticipantID: participantID, JoinedAt: 1}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *mockRegistry) Unregister(ctx context.Context, participantID string) error {
	return m.err
}

func (m *mockRegistry) List(ctx context.Context) ([]core.PresenceEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockRegistry) Clear(ctx context.Context) error {
	return m.err
}

func noLimit(next http.Handler) http.Handler { return next }

func newTestRouter(reg Registry) http.Handler {
	r := chi.NewRouter()
	Routes(r, reg, noLimit)
	return r
}

func newRealRegistry(now func() time.Time) *registry.Registry {
	return registry.NewRegistry(guard.New(memory.NewStore()), registry.WithClock(now))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body["message"]
}

func TestLegacyFlow(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	h := newTestRouter(newRealRegistry(func() time.Time { return clock }))

	rec := do(t, h, http.MethodGet, "/cadastro?nickname=alice&id=42", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	if msg := decodeMessage(t, rec); msg != "registration successful" {
		t.Errorf("message = %q", msg)
	}

	do(t, h, http.MethodGet, "/cadastro?nickname=bob&id=142", "")

	rec = do(t, h, http.MethodGet, "/buscar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var rows []LegacyEntry
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	want := []LegacyEntry{
		{Nickname: "alice", ID: "42", Timestamp: "1700000000000"},
		{Nickname: "bob", ID: "142", Timestamp: "1700000000000"},
	}
	if fmt.Sprint(rows) != fmt.Sprint(want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}

	rec = do(t, h, http.MethodGet, "/delete?id=42", "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = do(t, h, http.MethodGet, "/delete?id=42", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = do(t, h, http.MethodGet, "/buscar", "")
	rows = nil
	_ = json.NewDecoder(rec.Body).Decode(&rows)
	if len(rows) != 1 || rows[0].ID != "142" {
		t.Errorf("rows after delete = %v, want only 142", rows)
	}

	rec = do(t, h, http.MethodGet, "/deleteAll", "")
	if rec.Code != http.StatusOK {
		t.Errorf("deleteAll status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = do(t, h, http.MethodGet, "/buscar", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("buscar after deleteAll = %s, want []", rec.Body.String())
	}
}

func TestLegacyRegister_MissingParams(t *testing.T) {
	reg := &mockRegistry{}
	h := newTestRouter(reg)

	for _, target := range []string{"/cadastro", "/cadastro?nickname=alice", "/cadastro?id=1"} {
		rec := do(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want %d", target, rec.Code, http.StatusBadRequest)
		}
	}
	if reg.registered != 0 {
		t.Errorf("registry called %d times, want 0", reg.registered)
	}
}

func TestLegacyDelete_MissingID(t *testing.T) {
	h := newTestRouter(&mockRegistry{})

	rec := do(t, h, http.MethodGet, "/delete", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		target string
		body   string
		want   int
	}{
		{"validation", fmt.Errorf("%w: nickname must not contain commas", core.ErrValidation), http.MethodGet, "/cadastro?nickname=a,b&id=1", "", http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: participant", core.ErrNotFound), http.MethodGet, "/delete?id=9", "", http.StatusNotFound},
		{"storage on register", core.StorageError("write", fmt.Errorf("disk full")), http.MethodGet, "/cadastro?nickname=a&id=1", "", http.StatusInternalServerError},
		{"storage on list", core.StorageError("read", fmt.Errorf("disk gone")), http.MethodGet, "/buscar", "", http.StatusInternalServerError},
		{"storage on clear", core.StorageError("write", fmt.Errorf("disk gone")), http.MethodDelete, "/api/presence", "", http.StatusInternalServerError},
		{"storage on rest register", core.StorageError("write", fmt.Errorf("disk gone")), http.MethodPost, "/api/presence", `{"nickname":"a","id":"1"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockRegistry{err: tt.err})
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			msg := decodeMessage(t, rec)
			if msg == "" {
				t.Error("response has no message")
			}
			if strings.Contains(msg, "disk") {
				t.Errorf("storage detail leaked to client: %q", msg)
			}
		})
	}
}

func TestRESTFlow(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000)
	h := newTestRouter(newRealRegistry(func() time.Time { return clock }))

	rec := do(t, h, http.MethodPost, "/api/presence", `{"nickname":"alice","id":"7"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", rec.Code, http.StatusCreated)
	}

	rec = do(t, h, http.MethodGet, "/api/presence", "")
	var entries []core.PresenceEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].ParticipantID != "7" || entries[0].JoinedAt != 1_700_000_000_000 {
		t.Errorf("entries = %+v", entries)
	}

	rec = do(t, h, http.MethodDelete, "/api/presence/7", "")
	if rec.Code != http.StatusOK {
		t.Errorf("unregister status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec = do(t, h, http.MethodDelete, "/api/presence/7", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second unregister status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = do(t, h, http.MethodDelete, "/api/presence", "")
	if rec.Code != http.StatusOK {
		t.Errorf("clear status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRESTRegister_InvalidJSON(t *testing.T) {
	h := newTestRouter(&mockRegistry{})

	rec := do(t, h, http.MethodPost, "/api/presence", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRESTList_EmptyIsArray(t *testing.T) {
	h := newTestRouter(newRealRegistry(time.Now))

	rec := do(t, h, http.MethodGet, "/api/presence", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}
}

func TestRoutes_LimitAppliesToRegistration(t *testing.T) {
	var limited []string
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited = append(limited, r.Method+" "+r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	r := chi.NewRouter()
	Routes(r, &mockRegistry{}, limit)

	do(t, r, http.MethodGet, "/cadastro?nickname=a&id=1", "")
	do(t, r, http.MethodPost, "/api/presence", `{"nickname":"a","id":"1"}`)
	do(t, r, http.MethodGet, "/buscar", "")

	if len(limited) != 2 {
		t.Errorf("limited requests = %v, want the two registration routes", limited)
	}
}
