package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	handlersErrors "github.com/danilovkiri/dk-go-panel/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-panel/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/logger"
	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-panel/internal/service/processor/v1/errors"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor returns err from every fallible call and records the caller.
type stubProcessor struct {
	err      error
	username string
}

func (s *stubProcessor) AddNewUser(ctx context.Context, credentials modeldto.Credentials) error {
	return s.err
}

func (s *stubProcessor) LoginUser(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Token, error) {
	return &modeldto.Token{Token: "t"}, s.err
}

func (s *stubProcessor) GetBalance(ctx context.Context, username string) (*modeldto.Balance, error) {
	s.username = username
	if s.err != nil {
		return nil, s.err
	}
	return &modeldto.Balance{Balance: decimal.RequireFromString("12.5")}, nil
}

func (s *stubProcessor) AddFundingRequest(ctx context.Context, username string, request modeldto.NewFundingRequest) (*modeldto.FundingRequest, error) {
	s.username = username
	return &modeldto.FundingRequest{ID: "req_1"}, s.err
}

func (s *stubProcessor) GetFundingRequests(ctx context.Context, username string) ([]modeldto.FundingRequest, error) {
	s.username = username
	return []modeldto.FundingRequest{}, s.err
}

func (s *stubProcessor) GetAllFundingRequests(ctx context.Context) ([]modeldto.FundingRequest, error) {
	return []modeldto.FundingRequest{}, s.err
}

func (s *stubProcessor) ApproveFundingRequest(ctx context.Context, approvedBy string, approval modeldto.ApproveFunding) (*modeldto.FundingRequest, error) {
	s.username = approvedBy
	return &modeldto.FundingRequest{ID: approval.RequestID}, s.err
}

func (s *stubProcessor) AddNewOrder(ctx context.Context, username string, order modeldto.NewOrder) (*modeldto.Order, error) {
	s.username = username
	return &modeldto.Order{ID: "ord_1"}, s.err
}

func (s *stubProcessor) GetOrders(ctx context.Context, username string) ([]modeldto.Order, error) {
	s.username = username
	return []modeldto.Order{}, s.err
}

func (s *stubProcessor) GetAllOrders(ctx context.Context) ([]modeldto.Order, error) {
	return []modeldto.Order{}, s.err
}

func (s *stubProcessor) GetServices() []modeldto.Service {
	return []modeldto.Service{{Name: "s", Min: 1, Price: decimal.NewFromInt(1)}}
}

func newHandler(t *testing.T, proc *stubProcessor) *Handler {
	t.Helper()
	h, err := InitHandlers(proc, &config.ServerConfig{HandlerTimeout: time.Second}, logger.Nop())
	require.NoError(t, err)
	return h
}

func TestInitHandlers_NilArguments(t *testing.T) {
	var nilArg *handlersErrors.HandlersFoundNilArgument
	_, err := InitHandlers(nil, &config.ServerConfig{}, logger.Nop())
	assert.ErrorAs(t, err, &nilArg)
	_, err = InitHandlers(&stubProcessor{}, nil, logger.Nop())
	assert.ErrorAs(t, err, &nilArg)
	_, err = InitHandlers(&stubProcessor{}, &config.ServerConfig{}, nil)
	assert.ErrorAs(t, err, &nilArg)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &serviceErrors.ValidationError{Err: errors.New("amount must be a positive number")}, http.StatusBadRequest},
		{"credentials", &serviceErrors.InvalidCredentialsError{Username: "alice"}, http.StatusUnauthorized},
		{"duplicate", &storageErrors.AlreadyExistsError{ID: "alice"}, http.StatusConflict},
		{"not found", &storageErrors.NotFoundError{ID: "req_1"}, http.StatusNotFound},
		{"not pending", &storageErrors.NotPendingError{ID: "req_1", Status: "approved"}, http.StatusBadRequest},
		{"insufficient", &storageErrors.InsufficientFundsError{Username: "alice"}, http.StatusBadRequest},
		{"timeout", &storageErrors.ContextTimeoutExceededError{Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"wrapped timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, &stubProcessor{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/fund-request", strings.NewReader(`{"amount":1}`))
			rec := httptest.NewRecorder()
			h.HandleFundRequest()(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body["error"], "disk on fire")
		})
	}
}

func TestAlreadyExistsMessage(t *testing.T) {
	h := newHandler(t, &stubProcessor{err: &storageErrors.AlreadyExistsError{ID: "alice"}})
	rec := httptest.NewRecorder()
	h.HandleSignup()(rec, httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"alice","password":"pw1"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"user already exists"}`, rec.Body.String())

	h = newHandler(t, &stubProcessor{err: &storageErrors.AlreadyExistsError{ID: "ord_1"}})
	rec = httptest.NewRecorder()
	h.HandleOrder()(rec, httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"service":"s","quantity":1,"link":"l"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ord_1: already exists", body["error"])
	assert.NotContains(t, body["error"], "user")
}

func TestHandlers_UseContextUsername(t *testing.T) {
	proc := &stubProcessor{}
	h := newHandler(t, proc)

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	req = req.WithContext(middleware.WithUsername(req.Context(), "alice"))
	rec := httptest.NewRecorder()
	h.HandleBalance()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance": 12.5}`, rec.Body.String())
	assert.Equal(t, "alice", proc.username)

	req = httptest.NewRequest(http.MethodPost, "/admin/approve-funding", strings.NewReader(`{"requestId":"req_9"}`))
	req = req.WithContext(middleware.WithUsername(req.Context(), "youngjoe05"))
	rec = httptest.NewRecorder()
	h.HandleApproveFunding()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "youngjoe05", proc.username)
}

func TestHandlers_EmptyListsAreArrays(t *testing.T) {
	h := newHandler(t, &stubProcessor{})
	for name, handler := range map[string]http.HandlerFunc{
		"my orders":      h.HandleMyOrders(),
		"my requests":    h.HandleMyRequests(),
		"admin orders":   h.HandleAdminOrders(),
		"admin requests": h.HandleAdminRequests(),
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "[]\n", rec.Body.String(), name)
	}
}

func TestHandlers_InvalidJSON(t *testing.T) {
	h := newHandler(t, &stubProcessor{})
	for name, handler := range map[string]http.HandlerFunc{
		"signup":  h.HandleSignup(),
		"login":   h.HandleLogin(),
		"fund":    h.HandleFundRequest(),
		"order":   h.HandleOrder(),
		"approve": h.HandleApproveFunding(),
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestHandleRoot(t *testing.T) {
	h := newHandler(t, &stubProcessor{})
	rec := httptest.NewRecorder()
	h.HandleRoot()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Panel backend running", rec.Body.String())
}
