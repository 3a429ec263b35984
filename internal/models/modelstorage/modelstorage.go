// Package modelstorage provides the persisted ledger records.
//
// The same types back every storage implementation: json tags are used by
// the flat-file and Badger stores, db tags document the PSQL columns.
package modelstorage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Funding request and order statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// User is a registered panel account.
type User struct {
	Username     string          `json:"username" db:"username"`
	Password     string          `json:"password" db:"password"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	RegisteredAt time.Time       `json:"registered_at" db:"registered_at"`
}

// FundingRequest is a wallet top-up awaiting or past admin approval.
type FundingRequest struct {
	ID         string          `json:"id" db:"id"`
	Username   string          `json:"username" db:"username"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Method     string          `json:"method" db:"method"`
	Reference  string          `json:"reference" db:"reference"`
	Status     string          `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"date" db:"created_at"`
	ApprovedBy string          `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
}

// Order is a placed service order, paid for at placement time.
type Order struct {
	ID        string          `json:"id" db:"id"`
	Username  string          `json:"username" db:"username"`
	Service   string          `json:"service" db:"service"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Link      string          `json:"link" db:"link"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Status    string          `json:"status" db:"status"`
	CreatedAt time.Time       `json:"date" db:"created_at"`
}
