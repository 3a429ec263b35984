// Package client implements a client for the panel HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/api/rest/httputil"
	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

// Client defines attributes of a struct available to its methods.
type Client struct {
	client *resty.Client
	log    *zerolog.Logger
}

// InitClient initializes a resty client for the server at baseURL.
// A non-empty token is sent with every request.
func InitClient(baseURL, token string, log *zerolog.Logger) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		rc.SetHeader("Authorization", token)
	}
	log.Debug().Msg(fmt.Sprintf("panel client initialized for %s", baseURL))
	return &Client{client: rc, log: log}
}

func (c *Client) Signup(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Message, error) {
	var out modeldto.Message
	if err := c.do(ctx, http.MethodPost, "/signup", credentials, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Token, error) {
	var out modeldto.Token
	if err := c.do(ctx, http.MethodPost, "/login", credentials, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Balance(ctx context.Context) (*modeldto.Balance, error) {
	var out modeldto.Balance
	if err := c.do(ctx, http.MethodGet, "/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Services(ctx context.Context) ([]modeldto.Service, error) {
	var out []modeldto.Service
	if err := c.do(ctx, http.MethodGet, "/services", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FundRequest(ctx context.Context, request modeldto.NewFundingRequest) (*modeldto.FundingRequest, error) {
	var out modeldto.FundingRequest
	if err := c.do(ctx, http.MethodPost, "/fund-request", request, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyRequests(ctx context.Context) ([]modeldto.FundingRequest, error) {
	var out []modeldto.FundingRequest
	if err := c.do(ctx, http.MethodGet, "/my-requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllRequests(ctx context.Context) ([]modeldto.FundingRequest, error) {
	var out []modeldto.FundingRequest
	if err := c.do(ctx, http.MethodGet, "/admin/requests", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Approve(ctx context.Context, requestID string) (*modeldto.FundingRequest, error) {
	var out modeldto.FundingRequest
	if err := c.do(ctx, http.MethodPost, "/admin/approve-funding", modeldto.ApproveFunding{RequestID: requestID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, order modeldto.NewOrder) (*modeldto.Order, error) {
	var out modeldto.Order
	if err := c.do(ctx, http.MethodPost, "/order", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]modeldto.Order, error) {
	var out []modeldto.Order
	if err := c.do(ctx, http.MethodGet, "/my-orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AllOrders(ctx context.Context) ([]modeldto.Order, error) {
	var out []modeldto.Order
	if err := c.do(ctx, http.MethodGet, "/admin/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var apiErr httputil.ErrorResponse
	req := c.client.R().SetContext(ctx).SetResult(result).SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Error().Err(err).Msg(fmt.Sprintf("%s %s failed", method, path))
		return err
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: apiErr.Error}
	}
	return nil
}
