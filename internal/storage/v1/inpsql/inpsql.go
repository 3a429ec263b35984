package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Storage struct {
	Cfg *config.StorageConfig
	DB  *sql.DB
	log *zerolog.Logger
}

// InitStorage connects to PSQL and creates the ledger tables when absent.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, &storageErrors.StorageFoundNilArgument{Msg: "nil storage config was passed to PSQL storage initializer"}
	}
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	st, err := New(ctx, cfg, db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("PSQL DB connection was established")
	return st, nil
}

// New wraps an already opened database handle.
func New(ctx context.Context, cfg *config.StorageConfig, db *sql.DB, log *zerolog.Logger) (*Storage, error) {
	st := Storage{
		Cfg: cfg,
		DB:  db,
		log: log,
	}
	if err := st.createTables(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.User) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO users (username, password, balance, registered_at) VALUES ($1, $2, $3, $4)",
		user.Username, user.Password, user.Balance, user.RegisteredAt)
	if err != nil {
		err = s.mapError(ctx, err, user.Username)
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding new user failed for %s", user.Username))
		return err
	}
	s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Username))
	return nil
}

func (s *Storage) GetUser(ctx context.Context, username string) (*modelstorage.User, error) {
	var user modelstorage.User
	err := s.DB.QueryRowContext(ctx,
		"SELECT username, password, balance, registered_at FROM users WHERE username = $1", username).
		Scan(&user.Username, &user.Password, &user.Balance, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: username}
		}
		return nil, s.mapError(ctx, err, username)
	}
	return &user, nil
}

func (s *Storage) AddFundingRequest(ctx context.Context, request modelstorage.FundingRequest) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO funding_requests (id, username, amount, method, reference, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		request.ID, request.Username, request.Amount, request.Method, request.Reference, request.Status, request.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			err = &storageErrors.NotFoundError{Err: err, ID: request.Username}
		} else {
			err = s.mapError(ctx, err, request.ID)
		}
		s.log.Error().Err(err).Msg(fmt.Sprintf("adding funding request failed for %s", request.Username))
		return err
	}
	s.log.Info().Str("request_id", request.ID).Msg(fmt.Sprintf("adding funding request done for %s", request.Username))
	return nil
}

const selectFunding = "SELECT id, username, amount, method, reference, status, created_at, approved_by, approved_at FROM funding_requests"

func (s *Storage) GetFundingRequests(ctx context.Context, username string) ([]modelstorage.FundingRequest, error) {
	return s.queryFunding(ctx, selectFunding+" WHERE username = $1 ORDER BY created_at, id", username)
}

func (s *Storage) GetAllFundingRequests(ctx context.Context) ([]modelstorage.FundingRequest, error) {
	return s.queryFunding(ctx, selectFunding+" ORDER BY created_at, id")
}

// ApproveFundingRequest flips a pending request and credits its owner in one transaction.
// The conditional update on status guarantees a single approval under concurrency.
func (s *Storage) ApproveFundingRequest(ctx context.Context, requestID, approvedBy string, approvedAt time.Time) (*modelstorage.FundingRequest, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.mapError(ctx, err, requestID)
	}
	defer tx.Rollback()

	request := modelstorage.FundingRequest{ID: requestID}
	var by sql.NullString
	var at sql.NullTime
	err = tx.QueryRowContext(ctx,
		`UPDATE funding_requests SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND status = $5
		RETURNING username, amount, method, reference, status, created_at, approved_by, approved_at`,
		requestID, modelstorage.StatusApproved, approvedBy, approvedAt, modelstorage.StatusPending).
		Scan(&request.Username, &request.Amount, &request.Method, &request.Reference, &request.Status, &request.CreatedAt, &by, &at)
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		err = tx.QueryRowContext(ctx, "SELECT status FROM funding_requests WHERE id = $1", requestID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: requestID}
		}
		if err != nil {
			return nil, s.mapError(ctx, err, requestID)
		}
		return nil, &storageErrors.NotPendingError{ID: requestID, Status: status}
	}
	if err != nil {
		return nil, s.mapError(ctx, err, requestID)
	}
	request.ApprovedBy = by.String
	if at.Valid {
		request.ApprovedAt = &at.Time
	}

	if _, err := tx.ExecContext(ctx, "UPDATE users SET balance = balance + $1 WHERE username = $2", request.Amount, request.Username); err != nil {
		return nil, s.mapError(ctx, err, request.Username)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.mapError(ctx, err, requestID)
	}
	s.log.Info().Str("request_id", requestID).Msg(fmt.Sprintf("approving funding request done for %s", request.Username))
	return &request, nil
}

// AddNewOrder debits the owner and stores the order in one transaction.
func (s *Storage) AddNewOrder(ctx context.Context, order modelstorage.Order) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return s.mapError(ctx, err, order.ID)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE users SET balance = balance - $1 WHERE username = $2 AND balance >= $1",
		order.Price, order.Username)
	if err != nil {
		return s.mapError(ctx, err, order.Username)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if affected == 0 {
		var balance decimal.Decimal
		err := tx.QueryRowContext(ctx, "SELECT balance FROM users WHERE username = $1", order.Username).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return &storageErrors.NotFoundError{Err: err, ID: order.Username}
		}
		if err != nil {
			return s.mapError(ctx, err, order.Username)
		}
		return &storageErrors.InsufficientFundsError{Username: order.Username, Balance: balance, Required: order.Price}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, username, service, quantity, link, price, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		order.ID, order.Username, order.Service, order.Quantity, order.Link, order.Price, order.Status, order.CreatedAt)
	if err != nil {
		return s.mapError(ctx, err, order.ID)
	}
	if err := tx.Commit(); err != nil {
		return s.mapError(ctx, err, order.ID)
	}
	s.log.Info().Str("order_id", order.ID).Msg(fmt.Sprintf("adding new order done for %s", order.Username))
	return nil
}

const selectOrders = "SELECT id, username, service, quantity, link, price, status, created_at FROM orders"

func (s *Storage) GetOrders(ctx context.Context, username string) ([]modelstorage.Order, error) {
	return s.queryOrders(ctx, selectOrders+" WHERE username = $1 ORDER BY created_at, id", username)
}

func (s *Storage) GetAllOrders(ctx context.Context) ([]modelstorage.Order, error) {
	return s.queryOrders(ctx, selectOrders+" ORDER BY created_at, id")
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) queryFunding(ctx context.Context, query string, args ...any) ([]modelstorage.FundingRequest, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(ctx, err, "")
	}
	defer rows.Close()
	requests := make([]modelstorage.FundingRequest, 0)
	for rows.Next() {
		var r modelstorage.FundingRequest
		var by sql.NullString
		var at sql.NullTime
		if err := rows.Scan(&r.ID, &r.Username, &r.Amount, &r.Method, &r.Reference, &r.Status, &r.CreatedAt, &by, &at); err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		r.ApprovedBy = by.String
		if at.Valid {
			t := at.Time
			r.ApprovedAt = &t
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return requests, nil
}

func (s *Storage) queryOrders(ctx context.Context, query string, args ...any) ([]modelstorage.Order, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(ctx, err, "")
	}
	defer rows.Close()
	orders := make([]modelstorage.Order, 0)
	for rows.Next() {
		var o modelstorage.Order
		if err := rows.Scan(&o.ID, &o.Username, &o.Service, &o.Quantity, &o.Link, &o.Price, &o.Status, &o.CreatedAt); err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return orders, nil
}

// mapError converts driver errors into storage error types.
func (s *Storage) mapError(ctx context.Context, err error, id string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: ctxErr}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &storageErrors.AlreadyExistsError{Err: err, ID: id}
	}
	return &storageErrors.ExecutionPSQLError{Err: err}
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS users (
		username      TEXT           PRIMARY KEY,
		password      TEXT           NOT NULL,
		balance       NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		registered_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS funding_requests (
		id          TEXT           PRIMARY KEY,
		username    TEXT           NOT NULL REFERENCES users (username),
		amount      NUMERIC(14, 2) NOT NULL,
		method      TEXT           NOT NULL,
		reference   TEXT           NOT NULL,
		status      TEXT           NOT NULL,
		created_at  TIMESTAMPTZ    NOT NULL,
		approved_by TEXT,
		approved_at TIMESTAMPTZ
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS orders (
		id         TEXT           PRIMARY KEY,
		username   TEXT           NOT NULL REFERENCES users (username),
		service    TEXT           NOT NULL,
		quantity   INTEGER        NOT NULL,
		link       TEXT           NOT NULL,
		price      NUMERIC(14, 2) NOT NULL,
		status     TEXT           NOT NULL,
		created_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
