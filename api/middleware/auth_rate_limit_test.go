package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/mehadihasan/bazarly-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (s *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func postLogin(t *testing.T, handler http.Handler, email, addr string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
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

func TestAuthRateLimitPassesBodyThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 5, 5)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The limiter reads the body to extract the email; the handler
		// must still see it intact.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "tester@example.com")
		w.WriteHeader(http.StatusOK)
	}))

	rec := postLogin(t, handler, "tester@example.com", "1.2.3.4:5678")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitBlocksEmailOverLimit(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := postLogin(t, handler, "blocked@example.com", "1.2.3.4:5678")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postLogin(t, handler, "blocked@example.com", "1.2.3.4:5678")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))

	// A different email is a different counter.
	rec = postLogin(t, handler, "other@example.com", "1.2.3.4:5678")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitBlocksIPOverLimit(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := postLogin(t, handler, "a@example.com", "9.9.9.9:1000")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postLogin(t, handler, "b@example.com", "9.9.9.9:1000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = postLogin(t, handler, "c@example.com", "8.8.8.8:1000")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimitDisabledWithoutStore(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 1)
	handler := AuthRateLimit(policy, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := postLogin(t, handler, "free@example.com", "1.2.3.4:5678")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Del("X-Real-IP")
	require.Equal(t, "10.0.0.1", clientIP(req))
}
