// Package modeldto provides request and response bodies of the HTTP API.
package modeldto

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	// money columns are NUMERIC(14,2)
	maxMoneyDecimals = 2
	maxMoneyExponent = 12
)

// MaxAmount is the largest amount or price a request may carry.
var MaxAmount = decimal.RequireFromString("999999999999.99")

type (
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	Token struct {
		Token string `json:"token"`
	}
	Message struct {
		Message string `json:"message"`
	}
	Balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	NewFundingRequest struct {
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"method"`
		Reference string          `json:"reference"`
	}
	FundingRequest struct {
		ID         string          `json:"id"`
		Username   string          `json:"username"`
		Amount     decimal.Decimal `json:"amount"`
		Method     string          `json:"method"`
		Reference  string          `json:"reference"`
		Status     string          `json:"status"`
		Date       string          `json:"date"`
		ApprovedBy string          `json:"approvedBy,omitempty"`
		ApprovedAt string          `json:"approvedAt,omitempty"`
	}
	ApproveFunding struct {
		RequestID string `json:"requestId"`
	}
	NewOrder struct {
		Service  string           `json:"service"`
		Quantity int              `json:"quantity"`
		Link     string           `json:"link"`
		Price    *decimal.Decimal `json:"price,omitempty"`
	}
	Order struct {
		ID       string          `json:"id"`
		Username string          `json:"username"`
		Service  string          `json:"service"`
		Quantity int             `json:"quantity"`
		Link     string          `json:"link"`
		Price    decimal.Decimal `json:"price"`
		Status   string          `json:"status"`
		Date     string          `json:"date"`
	}
	Service struct {
		Name  string          `json:"name"`
		Min   int             `json:"min"`
		Price decimal.Decimal `json:"price"`
	}
)

// String hides the password when credentials end up in logs.
func (c Credentials) String() string {
	return fmt.Sprintf("{username: %s}", c.Username)
}

// Validate checks the fields required for signup and login.
func (c Credentials) Validate() error {
	var usernameErr, passwordErr error
	username := strings.TrimSpace(c.Username)
	switch {
	case username == "":
		usernameErr = errors.New("username is required")
	case username != c.Username:
		usernameErr = errors.New("username must not start or end with spaces")
	case utf8.RuneCountInString(username) < minUsernameLength || utf8.RuneCountInString(username) > maxUsernameLength:
		usernameErr = fmt.Errorf("username must be %d to %d characters long", minUsernameLength, maxUsernameLength)
	}
	if strings.TrimSpace(c.Password) == "" {
		passwordErr = errors.New("password is required")
	}
	return errors.Join(usernameErr, passwordErr)
}

// Validate checks that amount, method and reference are all present.
func (r NewFundingRequest) Validate() error {
	var amountErr, methodErr, referenceErr error
	switch {
	case !r.Amount.IsPositive():
		amountErr = errors.New("amount must be a positive number")
	default:
		amountErr = checkMoney("amount", r.Amount)
	}
	if strings.TrimSpace(r.Method) == "" {
		methodErr = errors.New("method is required")
	}
	if strings.TrimSpace(r.Reference) == "" {
		referenceErr = errors.New("reference is required")
	}
	return errors.Join(amountErr, methodErr, referenceErr)
}

// Validate checks the request shape; catalog rules are applied by the processor.
func (o NewOrder) Validate() error {
	var serviceErr, quantityErr, linkErr, priceErr error
	if strings.TrimSpace(o.Service) == "" {
		serviceErr = errors.New("service is required")
	}
	if o.Quantity <= 0 {
		quantityErr = errors.New("quantity must be a positive integer")
	}
	if strings.TrimSpace(o.Link) == "" {
		linkErr = errors.New("link is required")
	}
	if o.Price != nil {
		if o.Price.IsNegative() {
			priceErr = errors.New("price must not be negative")
		} else {
			priceErr = checkMoney("price", *o.Price)
		}
	}
	return errors.Join(serviceErr, quantityErr, linkErr, priceErr)
}

// Validate checks that a request identifier was given.
func (a ApproveFunding) Validate() error {
	if strings.TrimSpace(a.RequestID) == "" {
		return errors.New("requestId is required")
	}
	return nil
}

// checkMoney bounds scale and magnitude by the exponent first, so huge
// exponents are rejected without materialising the number.
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsZero() {
		return nil
	}
	if d.Exponent() < -maxMoneyDecimals {
		return fmt.Errorf("%s must have at most %d decimal places", field, maxMoneyDecimals)
	}
	if d.Exponent() > maxMoneyExponent || d.GreaterThan(MaxAmount) {
		return fmt.Errorf("%s must not exceed %s", field, MaxAmount.String())
	}
	return nil
}
