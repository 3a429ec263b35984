package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	handlersErrors "github.com/danilovkiri/dk-go-panel/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-panel/internal/api/rest/httputil"
	"github.com/danilovkiri/dk-go-panel/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-panel/internal/service/processor/v1"
	serviceErrors "github.com/danilovkiri/dk-go-panel/internal/service/processor/v1/errors"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service      processor.Processor
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

func InitHandlers(mainService processor.Processor, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if serverConfig == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil server config was passed to handlers initializer"}
	}
	if log == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil logger was passed to handlers initializer"}
	}
	return &Handler{service: mainService, serverConfig: serverConfig, log: log}, nil
}

func (h *Handler) HandleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "Panel backend running")
	}
}

func (h *Handler) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		var credentials modeldto.Credentials
		if !h.decode(w, r, &credentials, "handle signup failed") {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new user signup request detected for %s", credentials))
		if err := h.service.AddNewUser(ctx, credentials); err != nil {
			var alreadyExistsError *storageErrors.AlreadyExistsError
			if errors.As(err, &alreadyExistsError) {
				h.log.Warn().Err(err).Msg("handle signup failed")
				httputil.WriteError(w, http.StatusConflict, "user already exists")
				return
			}
			h.writeError(w, err, "handle signup failed")
			return
		}
		h.respond(w, http.StatusOK, modeldto.Message{Message: "Signup successful"})
	}
}

func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		var credentials modeldto.Credentials
		if !h.decode(w, r, &credentials, "handle login failed") {
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new login request detected for %s", credentials))
		token, err := h.service.LoginUser(ctx, credentials)
		if err != nil {
			h.writeError(w, err, "handle login failed")
			return
		}
		h.respond(w, http.StatusOK, token)
	}
}

func (h *Handler) HandleBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		balance, err := h.service.GetBalance(ctx, middleware.GetUsername(r.Context()))
		if err != nil {
			h.writeError(w, err, "handle balance failed")
			return
		}
		h.respond(w, http.StatusOK, balance)
	}
}

func (h *Handler) HandleFundRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		var request modeldto.NewFundingRequest
		if !h.decode(w, r, &request, "handle fund request failed") {
			return
		}
		created, err := h.service.AddFundingRequest(ctx, middleware.GetUsername(r.Context()), request)
		if err != nil {
			h.writeError(w, err, "handle fund request failed")
			return
		}
		h.respond(w, http.StatusOK, created)
	}
}

func (h *Handler) HandleMyRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		requests, err := h.service.GetFundingRequests(ctx, middleware.GetUsername(r.Context()))
		if err != nil {
			h.writeError(w, err, "handle my requests failed")
			return
		}
		h.respond(w, http.StatusOK, requests)
	}
}

func (h *Handler) HandleOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		var order modeldto.NewOrder
		if !h.decode(w, r, &order, "handle order failed") {
			return
		}
		created, err := h.service.AddNewOrder(ctx, middleware.GetUsername(r.Context()), order)
		if err != nil {
			h.writeError(w, err, "handle order failed")
			return
		}
		h.respond(w, http.StatusOK, created)
	}
}

func (h *Handler) HandleMyOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		orders, err := h.service.GetOrders(ctx, middleware.GetUsername(r.Context()))
		if err != nil {
			h.writeError(w, err, "handle my orders failed")
			return
		}
		h.respond(w, http.StatusOK, orders)
	}
}

func (h *Handler) HandleAdminRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		requests, err := h.service.GetAllFundingRequests(ctx)
		if err != nil {
			h.writeError(w, err, "handle admin requests failed")
			return
		}
		h.respond(w, http.StatusOK, requests)
	}
}

func (h *Handler) HandleAdminOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		orders, err := h.service.GetAllOrders(ctx)
		if err != nil {
			h.writeError(w, err, "handle admin orders failed")
			return
		}
		h.respond(w, http.StatusOK, orders)
	}
}

func (h *Handler) HandleApproveFunding() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.serverConfig.HandlerTimeout)
		defer cancel()
		var approval modeldto.ApproveFunding
		if !h.decode(w, r, &approval, "handle approve funding failed") {
			return
		}
		admin := middleware.GetUsername(r.Context())
		h.log.Info().Str("request_id", approval.RequestID).Msg(fmt.Sprintf("funding approval requested by %s", admin))
		approved, err := h.service.ApproveFundingRequest(ctx, admin, approval)
		if err != nil {
			h.writeError(w, err, "handle approve funding failed")
			return
		}
		h.respond(w, http.StatusOK, approved)
	}
}

func (h *Handler) HandleServices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusOK, h.service.GetServices())
	}
}

// decode reads a JSON body into dst and answers 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, msg string) bool {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.log.Error().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		h.log.Error().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, code int, v any) {
	if err := httputil.WriteJSON(w, code, v); err != nil {
		h.log.Error().Err(err).Msg("writing response failed")
	}
}

// writeError maps service and storage errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	var (
		contextTimeoutExceededError *storageErrors.ContextTimeoutExceededError
		validationError             *serviceErrors.ValidationError
		invalidCredentialsError     *serviceErrors.InvalidCredentialsError
		alreadyExistsError          *storageErrors.AlreadyExistsError
		notFoundError               *storageErrors.NotFoundError
		notPendingError             *storageErrors.NotPendingError
		insufficientFundsError      *storageErrors.InsufficientFundsError
	)
	switch {
	case errors.As(err, &contextTimeoutExceededError), errors.Is(err, context.DeadlineExceeded):
		h.log.Error().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.As(err, &validationError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusBadRequest, validationError.Error())
	case errors.As(err, &invalidCredentialsError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusUnauthorized, "invalid login")
	case errors.As(err, &alreadyExistsError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusConflict, alreadyExistsError.Error())
	case errors.As(err, &notFoundError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusNotFound, notFoundError.Error())
	case errors.As(err, &notPendingError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusBadRequest, notPendingError.Error())
	case errors.As(err, &insufficientFundsError):
		h.log.Warn().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusBadRequest, "insufficient balance")
	default:
		h.log.Error().Err(err).Msg(msg)
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
