package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papelisco/storefront/api/validators"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
)

type memoryIdempotencyStore struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + "#" + id
}

func idempotentRequest(method, target, key, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req.WithContext(WithUserID(req.Context(), "user-1"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestMatchIdempotencyRule(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		ok       bool
		required bool
		ttl      time.Duration
	}{
		{http.MethodPost, "/api/v1/checkout", true, true, 7 * 24 * time.Hour},
		{http.MethodPost, "/api/v1/auth/register", true, false, 24 * time.Hour},
		{http.MethodPatch, "/api/v1/admin/orders/7f6c/status", true, false, 24 * time.Hour},
		{http.MethodPatch, "/api/v1/admin/orders/7f6c/items/status", false, false, 0},
		{http.MethodDelete, "/api/v1/wishlist/abc", false, false, 0},
		{http.MethodPost, "/api/v1/auth/login", false, false, 0},
	}
	for _, tt := range tests {
		rule, ok := matchIdempotencyRule(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.required, rule.required, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.ttl, rule.ttl, "%s %s", tt.method, tt.path)
	}
}

func TestCheckoutRequiresKey(t *testing.T) {
	called := false
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/checkout", "", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestReplaysCompletedResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"orderNumber":"ORD-1"}}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k1", `{"items":[]}`))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k1", `{"items":[]}`))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"orderNumber":"ORD-1"}}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for _, ttl := range store.ttls {
		assert.Equal(t, 7*24*time.Hour, ttl)
	}
}

func TestKeyReuseWithDifferentBodyConflicts(t *testing.T) {
	h := Idempotency(newMemoryIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(http.MethodPost, "/api/v1/auth/register", "k2", `{"email":"a@b.co"}`))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/auth/register", "k2", `{"email":"c@d.co"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestOversizedBodyIsRejectedBeforeReserve(t *testing.T) {
	store := newMemoryIdempotencyStore()
	called := false
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	body := strings.Repeat("x", int(validators.MaxBodyBytes)+1)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k-big", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
	assert.False(t, called)
	assert.Empty(t, store.data)
}

func TestInFlightDuplicateIsRejected(t *testing.T) {
	store := newMemoryIdempotencyStore()
	var inner http.Handler
	outer := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dup := httptest.NewRecorder()
		inner.ServeHTTP(dup, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k3", `{}`))
		assert.Equal(t, http.StatusConflict, dup.Code)
		w.WriteHeader(http.StatusCreated)
	}))
	inner = outer

	rec := httptest.NewRecorder()
	outer.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k3", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServerErrorReleasesKey(t *testing.T) {
	store := newMemoryIdempotencyStore()
	status := http.StatusServiceUnavailable
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(http.MethodPost, "/api/v1/checkout", "k4", `{}`))
	assert.Empty(t, store.data)

	status = http.StatusCreated
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k4", `{}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestOptionalKeyPassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/wishlist", "", `{"productId":"x"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryIdempotencyStore()
	store.setErr = errors.New("redis down")
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest(http.MethodPost, "/api/v1/checkout", "k5", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
