// Package inbadger implements the ledger storage on an embedded Badger key-value store.
//
// Records are stored as JSON under the keys user/<username>, funding/<id> and
// order/<id>. Balance-changing operations run in a single read-write
// transaction and are retried when Badger reports a conflict.
package inbadger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

const (
	userPrefix    = "user/"
	fundingPrefix = "funding/"
	orderPrefix   = "order/"

	maxConflictRetries = 64
)

// Storage defines attributes of a struct available to its methods.
type Storage struct {
	DB  *badger.DB
	log *zerolog.Logger
}

// InitStorage opens (or creates) the Badger database in cfg.BadgerDir.
func InitStorage(cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, &storageErrors.StorageFoundNilArgument{Msg: "nil storage config was passed to badger storage initializer"}
	}
	if cfg.BadgerDir == "" {
		return nil, &storageErrors.StorageFoundNilArgument{Msg: "empty badger directory was passed to badger storage initializer"}
	}
	st, err := open(badger.DefaultOptions(cfg.BadgerDir), log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", cfg.BadgerDir).Msg("badger storage initialized")
	return st, nil
}

// InitInMemory opens a Badger database that lives only in memory.
func InitInMemory(log *zerolog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

func open(opts badger.Options, log *zerolog.Logger) (*Storage, error) {
	opts.Logger = &badgerLogger{log: log}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}
	return &Storage{DB: db, log: log}, nil
}

// AddNewUser stores a new user unless the username is already taken.
func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.User) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := []byte(userPrefix + user.Username)
		if _, err := txn.Get(key); err == nil {
			return &storageErrors.AlreadyExistsError{ID: user.Username}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, user)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding new user failed for %s", user.Username))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Username))
	return nil
}

// GetUser returns the stored user.
func (s *Storage) GetUser(ctx context.Context, username string) (*modelstorage.User, error) {
	var user modelstorage.User
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userPrefix+username), username, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AddFundingRequest stores a funding request owned by an existing user.
func (s *Storage) AddFundingRequest(ctx context.Context, request modelstorage.FundingRequest) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(userPrefix + request.Username)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &storageErrors.NotFoundError{Err: err, ID: request.Username}
			}
			return err
		}
		key := []byte(fundingPrefix + request.ID)
		if _, err := txn.Get(key); err == nil {
			return &storageErrors.AlreadyExistsError{ID: request.ID}
		}
		return setJSON(txn, key, request)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding funding request failed for %s", request.Username))
		return err
	}
	s.log.Info().Str("request_id", request.ID).Msg(fmt.Sprintf("adding funding request done for %s", request.Username))
	return nil
}

// GetFundingRequests returns the user's requests ordered by id.
func (s *Storage) GetFundingRequests(ctx context.Context, username string) ([]modelstorage.FundingRequest, error) {
	return scan(ctx, s, fundingPrefix, func(r modelstorage.FundingRequest) bool { return r.Username == username })
}

// GetAllFundingRequests returns every stored request ordered by id.
func (s *Storage) GetAllFundingRequests(ctx context.Context) ([]modelstorage.FundingRequest, error) {
	return scan(ctx, s, fundingPrefix, func(modelstorage.FundingRequest) bool { return true })
}

// ApproveFundingRequest credits the owner and marks the request approved in one transaction.
func (s *Storage) ApproveFundingRequest(ctx context.Context, requestID, approvedBy string, approvedAt time.Time) (*modelstorage.FundingRequest, error) {
	var approved modelstorage.FundingRequest
	err := s.update(ctx, func(txn *badger.Txn) error {
		requestKey := []byte(fundingPrefix + requestID)
		var request modelstorage.FundingRequest
		if err := getJSON(txn, requestKey, requestID, &request); err != nil {
			return err
		}
		if request.Status != modelstorage.StatusPending {
			return &storageErrors.NotPendingError{ID: requestID, Status: request.Status}
		}
		userKey := []byte(userPrefix + request.Username)
		var user modelstorage.User
		if err := getJSON(txn, userKey, request.Username, &user); err != nil {
			return err
		}
		user.Balance = user.Balance.Add(request.Amount)
		request.Status = modelstorage.StatusApproved
		request.ApprovedBy = approvedBy
		request.ApprovedAt = &approvedAt
		if err := setJSON(txn, userKey, user); err != nil {
			return err
		}
		if err := setJSON(txn, requestKey, request); err != nil {
			return err
		}
		approved = request
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Msg("approving funding request failed")
		return nil, err
	}
	s.log.Info().Str("request_id", requestID).Msg(fmt.Sprintf("approving funding request done for %s", approved.Username))
	return &approved, nil
}

// AddNewOrder debits the owner and stores the order in one transaction.
func (s *Storage) AddNewOrder(ctx context.Context, order modelstorage.Order) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		userKey := []byte(userPrefix + order.Username)
		var user modelstorage.User
		if err := getJSON(txn, userKey, order.Username, &user); err != nil {
			return err
		}
		if user.Balance.LessThan(order.Price) {
			return &storageErrors.InsufficientFundsError{Username: order.Username, Balance: user.Balance, Required: order.Price}
		}
		user.Balance = user.Balance.Sub(order.Price)
		if err := setJSON(txn, userKey, user); err != nil {
			return err
		}
		return setJSON(txn, []byte(orderPrefix+order.ID), order)
	})
	if err != nil {
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding new order failed for %s", order.Username))
		return err
	}
	s.log.Info().Str("order_id", order.ID).Msg(fmt.Sprintf("adding new order done for %s", order.Username))
	return nil
}

// GetOrders returns the user's orders ordered by id.
func (s *Storage) GetOrders(ctx context.Context, username string) ([]modelstorage.Order, error) {
	return scan(ctx, s, orderPrefix, func(o modelstorage.Order) bool { return o.Username == username })
}

// GetAllOrders returns every stored order ordered by id.
func (s *Storage) GetAllOrders(ctx context.Context) ([]modelstorage.Order, error) {
	return scan(ctx, s, orderPrefix, func(modelstorage.Order) bool { return true })
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *Storage) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return &storageErrors.ContextTimeoutExceededError{Err: err}
		}
		err := s.DB.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxConflictRetries {
			return err
		}
		s.log.Debug().Int("attempt", attempt+1).Msg("badger transaction conflict, retrying")
	}
}

func (s *Storage) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	return s.DB.View(fn)
}

func scan[T any](ctx context.Context, s *Storage, prefix string, keep func(T) bool) ([]T, error) {
	records := make([]T, 0)
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var record T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			if keep(record) {
				records = append(records, record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func getJSON(txn *badger.Txn, key []byte, id string, dst any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &storageErrors.NotFoundError{Err: err, ID: id}
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func setJSON(txn *badger.Txn, key []byte, src any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

// badgerLogger routes Badger's internal logging into zerolog.
type badgerLogger struct {
	log *zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Str("component", "badger").Msg(fmt.Sprintf(format, args...))
}
