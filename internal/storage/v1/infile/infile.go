// Package infile implements the ledger storage on top of flat JSON files.
//
// Every file holds one JSON array and is rewritten wholesale on each change.
// All read-modify-write cycles are serialized by a single mutex, so
// concurrent requests in one process never lose updates. Operations that
// touch two files write them one after another; the write order is chosen
// so that a crash in between never credits a user twice and never leaves
// an unpaid order.
package infile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/rs/zerolog"
)

const (
	usersFile    = "users.json"
	requestsFile = "requests.json"
	ordersFile   = "orders.json"
)

// Storage defines attributes of a struct available to its methods.
type Storage struct {
	mu  sync.Mutex
	Cfg *config.StorageConfig
	log *zerolog.Logger
}

// InitStorage prepares the storage directory and creates empty files when absent.
func InitStorage(cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, &storageErrors.StorageFoundNilArgument{Msg: "nil storage config was passed to file storage initializer"}
	}
	dir := cfg.FileDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	st := &Storage{
		Cfg: &config.StorageConfig{FileDir: dir},
		log: log,
	}
	readJSON[modelstorage.User](st.log, st.path(usersFile))
	readJSON[modelstorage.FundingRequest](st.log, st.path(requestsFile))
	readJSON[modelstorage.Order](st.log, st.path(ordersFile))
	log.Info().Str("dir", dir).Msg("file storage initialized")
	return st, nil
}

// AddNewUser appends a new user unless the username is already taken.
func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.User) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	users := readJSON[modelstorage.User](s.log, s.path(usersFile))
	if findUser(users, user.Username) >= 0 {
		return &storageErrors.AlreadyExistsError{ID: user.Username}
	}
	users = append(users, user)
	if err := writeJSON(s.path(usersFile), users); err != nil {
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Username))
	return nil
}

// GetUser returns a copy of the stored user.
func (s *Storage) GetUser(ctx context.Context, username string) (*modelstorage.User, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	users := readJSON[modelstorage.User](s.log, s.path(usersFile))
	idx := findUser(users, username)
	if idx < 0 {
		return nil, &storageErrors.NotFoundError{ID: username}
	}
	user := users[idx]
	return &user, nil
}

// AddFundingRequest appends a funding request owned by an existing user.
func (s *Storage) AddFundingRequest(ctx context.Context, request modelstorage.FundingRequest) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	users := readJSON[modelstorage.User](s.log, s.path(usersFile))
	if findUser(users, request.Username) < 0 {
		return &storageErrors.NotFoundError{ID: request.Username}
	}
	requests := readJSON[modelstorage.FundingRequest](s.log, s.path(requestsFile))
	requests = append(requests, request)
	if err := writeJSON(s.path(requestsFile), requests); err != nil {
		return err
	}
	s.log.Info().Str("request_id", request.ID).Msg(fmt.Sprintf("adding funding request done for %s", request.Username))
	return nil
}

// GetFundingRequests returns the user's requests in creation order.
func (s *Storage) GetFundingRequests(ctx context.Context, username string) ([]modelstorage.FundingRequest, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	requests := readJSON[modelstorage.FundingRequest](s.log, s.path(requestsFile))
	owned := make([]modelstorage.FundingRequest, 0)
	for _, r := range requests {
		if r.Username == username {
			owned = append(owned, r)
		}
	}
	return owned, nil
}

// GetAllFundingRequests returns every stored request.
func (s *Storage) GetAllFundingRequests(ctx context.Context) ([]modelstorage.FundingRequest, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return readJSON[modelstorage.FundingRequest](s.log, s.path(requestsFile)), nil
}

// ApproveFundingRequest credits the owner and marks the request approved.
// The request file is written first: a crash before the user file is
// written loses the credit instead of allowing a second approval.
func (s *Storage) ApproveFundingRequest(ctx context.Context, requestID, approvedBy string, approvedAt time.Time) (*modelstorage.FundingRequest, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	requests := readJSON[modelstorage.FundingRequest](s.log, s.path(requestsFile))
	reqIdx := -1
	for i := range requests {
		if requests[i].ID == requestID {
			reqIdx = i
			break
		}
	}
	if reqIdx < 0 {
		return nil, &storageErrors.NotFoundError{ID: requestID}
	}
	request := &requests[reqIdx]
	if request.Status != modelstorage.StatusPending {
		return nil, &storageErrors.NotPendingError{ID: requestID, Status: request.Status}
	}
	users := readJSON[modelstorage.User](s.log, s.path(usersFile))
	userIdx := findUser(users, request.Username)
	if userIdx < 0 {
		return nil, &storageErrors.NotFoundError{ID: request.Username}
	}
	users[userIdx].Balance = users[userIdx].Balance.Add(request.Amount)
	request.Status = modelstorage.StatusApproved
	request.ApprovedBy = approvedBy
	request.ApprovedAt = &approvedAt
	if err := writeJSON(s.path(requestsFile), requests); err != nil {
		return nil, err
	}
	if err := writeJSON(s.path(usersFile), users); err != nil {
		s.log.Error().Err(err).Str("request_id", requestID).Msg("request approved but user balance was not persisted")
		return nil, err
	}
	s.log.Info().Str("request_id", requestID).Msg(fmt.Sprintf("approving funding request done for %s", request.Username))
	approved := *request
	return &approved, nil
}

// AddNewOrder debits the owner by the order price and appends the order.
// The user file is written first: a crash before the order file is
// written loses the order instead of recording an unpaid one.
func (s *Storage) AddNewOrder(ctx context.Context, order modelstorage.Order) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	users := readJSON[modelstorage.User](s.log, s.path(usersFile))
	userIdx := findUser(users, order.Username)
	if userIdx < 0 {
		return &storageErrors.NotFoundError{ID: order.Username}
	}
	if users[userIdx].Balance.LessThan(order.Price) {
		return &storageErrors.InsufficientFundsError{Username: order.Username, Balance: users[userIdx].Balance, Required: order.Price}
	}
	users[userIdx].Balance = users[userIdx].Balance.Sub(order.Price)
	orders := readJSON[modelstorage.Order](s.log, s.path(ordersFile))
	orders = append(orders, order)
	if err := writeJSON(s.path(usersFile), users); err != nil {
		return err
	}
	if err := writeJSON(s.path(ordersFile), orders); err != nil {
		s.log.Error().Err(err).Str("order_id", order.ID).Msg("user debited but order was not persisted")
		return err
	}
	s.log.Info().Str("order_id", order.ID).Msg(fmt.Sprintf("adding new order done for %s", order.Username))
	return nil
}

// GetOrders returns the user's orders in creation order.
func (s *Storage) GetOrders(ctx context.Context, username string) ([]modelstorage.Order, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	orders := readJSON[modelstorage.Order](s.log, s.path(ordersFile))
	owned := make([]modelstorage.Order, 0)
	for _, o := range orders {
		if o.Username == username {
			owned = append(owned, o)
		}
	}
	return owned, nil
}

// GetAllOrders returns every stored order.
func (s *Storage) GetAllOrders(ctx context.Context) ([]modelstorage.Order, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return readJSON[modelstorage.Order](s.log, s.path(ordersFile)), nil
}

// Close is a no-op, files are never held open.
func (s *Storage) Close() error {
	return nil
}

// lock acquires the storage mutex unless the context is already done.
func (s *Storage) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	return nil
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.Cfg.FileDir, name)
}

func findUser(users []modelstorage.User, username string) int {
	for i := range users {
		if users[i].Username == username {
			return i
		}
	}
	return -1
}

// readJSON loads a JSON array from path. A missing file is created empty;
// unreadable, blank or invalid content yields an empty slice and is logged.
func readJSON[T any](log *zerolog.Logger, path string) []T {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeJSON(path, []T{}); err != nil {
			log.Error().Err(err).Str("file", path).Msg("creating empty storage file failed")
		}
		return []T{}
	}
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("reading storage file failed")
		return []T{}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []T{}
	}
	var records []T
	if err := json.Unmarshal(b, &records); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("parsing storage file failed, treating it as empty")
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

// writeJSON replaces the file at path with the indented JSON array.
func writeJSON[T any](path string, records []T) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
