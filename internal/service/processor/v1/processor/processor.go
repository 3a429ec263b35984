package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/metrics"
	"github.com/danilovkiri/dk-go-panel/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-panel/internal/service/catalog"
	serviceErrors "github.com/danilovkiri/dk-go-panel/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-panel/internal/service/secretary/v1"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DateLayout formats record timestamps in responses.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

type Processor struct {
	storage   storage.Storage
	secretary secretary.Secretary
	catalog   *catalog.Catalog
	ids       *idGenerator
	log       *zerolog.Logger
	now       func() time.Time
}

func InitService(st storage.Storage, sec secretary.Secretary, cat *catalog.Catalog, log *zerolog.Logger) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	if cat == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil catalog was passed to service initializer"}
	}
	if log == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil logger was passed to service initializer"}
	}
	processor := &Processor{
		storage:   st,
		secretary: sec,
		catalog:   cat,
		ids:       newIDGenerator(),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	return processor, nil
}

func (proc *Processor) AddNewUser(ctx context.Context, credentials modeldto.Credentials) error {
	if err := credentials.Validate(); err != nil {
		metrics.Signups.WithLabelValues(metrics.ResultRejected).Inc()
		return &serviceErrors.ValidationError{Err: err}
	}
	hash, err := proc.secretary.HashPassword(credentials.Password)
	if err != nil {
		metrics.Signups.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	err = proc.storage.AddNewUser(ctx, modelstorage.User{
		Username:     credentials.Username,
		Password:     hash,
		Balance:      decimal.Zero,
		RegisteredAt: proc.now(),
	})
	if err != nil {
		metrics.Signups.WithLabelValues(resultOf(err)).Inc()
		return err
	}
	metrics.Signups.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

func (proc *Processor) LoginUser(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Token, error) {
	user, err := proc.storage.GetUser(ctx, credentials.Username)
	if err != nil {
		var notFound *storageErrors.NotFoundError
		if errors.As(err, &notFound) {
			metrics.Logins.WithLabelValues(metrics.ResultRejected).Inc()
			return nil, &serviceErrors.InvalidCredentialsError{Username: credentials.Username}
		}
		metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if !proc.secretary.CheckPassword(user.Password, credentials.Password) {
		metrics.Logins.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.InvalidCredentialsError{Username: credentials.Username}
	}
	token, err := proc.secretary.GetTokenForUser(user.Username)
	if err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	metrics.Logins.WithLabelValues(metrics.ResultOK).Inc()
	return &modeldto.Token{Token: token}, nil
}

func (proc *Processor) GetBalance(ctx context.Context, username string) (*modeldto.Balance, error) {
	user, err := proc.storage.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &modeldto.Balance{Balance: user.Balance}, nil
}

func (proc *Processor) AddFundingRequest(ctx context.Context, username string, request modeldto.NewFundingRequest) (*modeldto.FundingRequest, error) {
	if err := request.Validate(); err != nil {
		metrics.FundingRequests.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.ValidationError{Err: err}
	}
	now := proc.now()
	id, err := proc.ids.next(fundingIDPrefix, now)
	if err != nil {
		metrics.FundingRequests.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	entry := modelstorage.FundingRequest{
		ID:        id,
		Username:  username,
		Amount:    request.Amount,
		Method:    request.Method,
		Reference: request.Reference,
		Status:    modelstorage.StatusPending,
		CreatedAt: now,
	}
	if err := proc.storage.AddFundingRequest(ctx, entry); err != nil {
		metrics.FundingRequests.WithLabelValues(resultOf(err)).Inc()
		return nil, err
	}
	metrics.FundingRequests.WithLabelValues(metrics.ResultOK).Inc()
	out := fundingToDTO(entry)
	return &out, nil
}

func (proc *Processor) GetFundingRequests(ctx context.Context, username string) ([]modeldto.FundingRequest, error) {
	requests, err := proc.storage.GetFundingRequests(ctx, username)
	if err != nil {
		return nil, err
	}
	return fundingListToDTO(requests), nil
}

func (proc *Processor) GetAllFundingRequests(ctx context.Context) ([]modeldto.FundingRequest, error) {
	requests, err := proc.storage.GetAllFundingRequests(ctx)
	if err != nil {
		return nil, err
	}
	return fundingListToDTO(requests), nil
}

func (proc *Processor) ApproveFundingRequest(ctx context.Context, approvedBy string, approval modeldto.ApproveFunding) (*modeldto.FundingRequest, error) {
	if err := approval.Validate(); err != nil {
		metrics.Approvals.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.ValidationError{Err: err}
	}
	approved, err := proc.storage.ApproveFundingRequest(ctx, approval.RequestID, approvedBy, proc.now())
	if err != nil {
		metrics.Approvals.WithLabelValues(resultOf(err)).Inc()
		return nil, err
	}
	metrics.Approvals.WithLabelValues(metrics.ResultOK).Inc()
	metrics.Credited.Add(approved.Amount.InexactFloat64())
	proc.log.Info().Str("request_id", approved.ID).Str("approved_by", approvedBy).Msg(fmt.Sprintf("credited %s to %s", approved.Amount.String(), approved.Username))
	out := fundingToDTO(*approved)
	return &out, nil
}

func (proc *Processor) AddNewOrder(ctx context.Context, username string, order modeldto.NewOrder) (*modeldto.Order, error) {
	if err := order.Validate(); err != nil {
		metrics.Orders.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.ValidationError{Err: err}
	}
	price, err := proc.catalog.Quote(order.Service, order.Quantity)
	if err != nil {
		metrics.Orders.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.ValidationError{Err: err}
	}
	if order.Price != nil && !order.Price.Equal(price) {
		metrics.Orders.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, &serviceErrors.ValidationError{Err: fmt.Errorf("price %s does not match catalog price %s", order.Price.String(), price.String())}
	}
	now := proc.now()
	id, err := proc.ids.next(orderIDPrefix, now)
	if err != nil {
		metrics.Orders.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	entry := modelstorage.Order{
		ID:        id,
		Username:  username,
		Service:   order.Service,
		Quantity:  order.Quantity,
		Link:      order.Link,
		Price:     price,
		Status:    modelstorage.StatusPending,
		CreatedAt: now,
	}
	if err := proc.storage.AddNewOrder(ctx, entry); err != nil {
		metrics.Orders.WithLabelValues(resultOf(err)).Inc()
		return nil, err
	}
	metrics.Orders.WithLabelValues(metrics.ResultOK).Inc()
	metrics.Debited.Add(price.InexactFloat64())
	out := orderToDTO(entry)
	return &out, nil
}

func (proc *Processor) GetOrders(ctx context.Context, username string) ([]modeldto.Order, error) {
	orders, err := proc.storage.GetOrders(ctx, username)
	if err != nil {
		return nil, err
	}
	return orderListToDTO(orders), nil
}

func (proc *Processor) GetAllOrders(ctx context.Context) ([]modeldto.Order, error) {
	orders, err := proc.storage.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	return orderListToDTO(orders), nil
}

func (proc *Processor) GetServices() []modeldto.Service {
	services := proc.catalog.List()
	out := make([]modeldto.Service, 0, len(services))
	for _, s := range services {
		out = append(out, modeldto.Service{Name: s.Name, Min: s.Min, Price: s.Price})
	}
	return out
}

// resultOf classifies a storage failure for the ledger counters.
func resultOf(err error) string {
	var (
		alreadyExists *storageErrors.AlreadyExistsError
		notFound      *storageErrors.NotFoundError
		notPending    *storageErrors.NotPendingError
		insufficient  *storageErrors.InsufficientFundsError
	)
	switch {
	case errors.As(err, &alreadyExists), errors.As(err, &notFound), errors.As(err, &notPending), errors.As(err, &insufficient):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

func fundingToDTO(r modelstorage.FundingRequest) modeldto.FundingRequest {
	out := modeldto.FundingRequest{
		ID:         r.ID,
		Username:   r.Username,
		Amount:     r.Amount,
		Method:     r.Method,
		Reference:  r.Reference,
		Status:     r.Status,
		Date:       r.CreatedAt.UTC().Format(DateLayout),
		ApprovedBy: r.ApprovedBy,
	}
	if r.ApprovedAt != nil {
		out.ApprovedAt = r.ApprovedAt.UTC().Format(DateLayout)
	}
	return out
}

func fundingListToDTO(requests []modelstorage.FundingRequest) []modeldto.FundingRequest {
	out := make([]modeldto.FundingRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, fundingToDTO(r))
	}
	return out
}

func orderToDTO(o modelstorage.Order) modeldto.Order {
	return modeldto.Order{
		ID:       o.ID,
		Username: o.Username,
		Service:  o.Service,
		Quantity: o.Quantity,
		Link:     o.Link,
		Price:    o.Price,
		Status:   o.Status,
		Date:     o.CreatedAt.UTC().Format(DateLayout),
	}
}

func orderListToDTO(orders []modelstorage.Order) []modeldto.Order {
	out := make([]modeldto.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderToDTO(o))
	}
	return out
}
