// Package processor defines the ledger operations exposed over HTTP.
package processor

import (
	"context"

	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
)

// Accounts handles signup, login and balance lookups.
type Accounts interface {
	AddNewUser(ctx context.Context, credentials modeldto.Credentials) error
	LoginUser(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Token, error)
	GetBalance(ctx context.Context, username string) (*modeldto.Balance, error)
}

// Funding handles wallet top-up requests and their approval.
type Funding interface {
	AddFundingRequest(ctx context.Context, username string, request modeldto.NewFundingRequest) (*modeldto.FundingRequest, error)
	GetFundingRequests(ctx context.Context, username string) ([]modeldto.FundingRequest, error)
	GetAllFundingRequests(ctx context.Context) ([]modeldto.FundingRequest, error)
	ApproveFundingRequest(ctx context.Context, approvedBy string, approval modeldto.ApproveFunding) (*modeldto.FundingRequest, error)
}

// Orders handles order placement and the service catalog.
type Orders interface {
	AddNewOrder(ctx context.Context, username string, order modeldto.NewOrder) (*modeldto.Order, error)
	GetOrders(ctx context.Context, username string) ([]modeldto.Order, error)
	GetAllOrders(ctx context.Context) ([]modeldto.Order, error)
	GetServices() []modeldto.Service
}

type Processor interface {
	Accounts
	Funding
	Orders
}
