// Package storage defines the ledger persistence contract.
package storage

import (
	"context"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
)

// Register stores accounts and their credentials.
type Register interface {
	AddNewUser(ctx context.Context, user modelstorage.User) error
	GetUser(ctx context.Context, username string) (*modelstorage.User, error)
}

// Funding stores wallet top-up requests. ApproveFundingRequest credits the
// owner and flips the request to approved in one atomic step.
type Funding interface {
	AddFundingRequest(ctx context.Context, request modelstorage.FundingRequest) error
	GetFundingRequests(ctx context.Context, username string) ([]modelstorage.FundingRequest, error)
	GetAllFundingRequests(ctx context.Context) ([]modelstorage.FundingRequest, error)
	ApproveFundingRequest(ctx context.Context, requestID, approvedBy string, approvedAt time.Time) (*modelstorage.FundingRequest, error)
}

// Orders stores placed orders. AddNewOrder debits the owner by the order
// price and appends the order in one atomic step.
type Orders interface {
	AddNewOrder(ctx context.Context, order modelstorage.Order) error
	GetOrders(ctx context.Context, username string) ([]modelstorage.Order, error)
	GetAllOrders(ctx context.Context) ([]modelstorage.Order, error)
}

type Storage interface {
	Register
	Funding
	Orders
	Close() error
}
