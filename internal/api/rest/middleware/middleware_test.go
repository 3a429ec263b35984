package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/logger"
	"github.com/danilovkiri/dk-go-panel/internal/service/secretary/v1/secretary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenHandler(t *testing.T) (*TokenHandler, *secretary.Secretary) {
	t.Helper()
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{
		SecretKey:      "test-key",
		TokenTTL:       time.Hour,
		AdminUsernames: []string{"youngjoe05"},
	})
	require.NoError(t, err)
	th, err := NewTokenHandler(sec, logger.Nop())
	require.NoError(t, err)
	return th, sec
}

func echoUsername() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, GetUsername(r.Context()))
	})
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestNewTokenHandler_NilSecretary(t *testing.T) {
	_, err := NewTokenHandler(nil, logger.Nop())
	assert.Error(t, err)
}

func TestTokenHandle(t *testing.T) {
	th, sec := newTokenHandler(t)
	token, err := sec.GetTokenForUser("alice")
	require.NoError(t, err)
	handler := th.TokenHandle(echoUsername())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{"missing", "", http.StatusUnauthorized, "", "no token provided"},
		{"garbage", "not-a-token", http.StatusUnauthorized, "", "invalid token"},
		{"raw token", token, http.StatusOK, "alice", ""},
		{"bearer token", "Bearer " + token, http.StatusOK, "alice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAdminHandle(t *testing.T) {
	th, sec := newTokenHandler(t)
	handler := th.TokenHandle(th.AdminHandle(echoUsername()))

	adminToken, err := sec.GetTokenForUser("youngjoe05")
	require.NoError(t, err)
	userToken, err := sec.GetTokenForUser("alice")
	require.NoError(t, err)

	for token, want := range map[string]int{
		"":         http.StatusUnauthorized,
		userToken:  http.StatusForbidden,
		adminToken: http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}

	rec := httptest.NewRecorder()
	th.AdminHandle(echoUsername()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.Nop())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"), "ports of one host share a bucket")
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, logger.Nop())
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("a")
	now = now.Add(2 * limiterIdleTTL)
	rl.getLimiter("b")
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limiters, "a")
	assert.Contains(t, rl.limiters, "b")
}

func TestDecompressHandle(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"username":"alice"}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	handler := DecompressHandle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write(b)
	}))

	req := httptest.NewRequest(http.MethodPost, "/signup", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, `{"username":"alice"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString("plain"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "plain", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	called := false
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/order", nil)
	req.Header.Set("Origin", "https://panel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.False(t, called, "preflight must not reach the route")

	req = httptest.NewRequest(http.MethodGet, "/services", nil)
	req.Header.Set("Origin", "https://panel.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, called)
}
