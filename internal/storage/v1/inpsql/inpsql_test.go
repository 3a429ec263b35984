package inpsql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/danilovkiri/dk-go-panel/internal/config"
	"github.com/danilovkiri/dk-go-panel/internal/logger"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-panel/internal/storage/v1/storagetest"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS funding_requests").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").WillReturnResult(sqlmock.NewResult(0, 0))
	st, err := New(context.Background(), &config.StorageConfig{}, db, logger.Nop())
	require.NoError(t, err)
	return st, mock
}

func TestAddNewUser(t *testing.T) {
	st, mock := newMockStorage(t)
	user := storagetest.NewUser("alice")
	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice", user.Password, sqlmock.AnyArg(), user.RegisteredAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, st.AddNewUser(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddNewUser_Duplicate(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := st.AddNewUser(context.Background(), storagetest.NewUser("alice"))
	var alreadyExists *storageErrors.AlreadyExistsError
	require.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, "alice", alreadyExists.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser(t *testing.T) {
	st, mock := newMockStorage(t)
	registered := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT username, password, balance, registered_at FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password", "balance", "registered_at"}).
			AddRow("alice", "hash", "5000.00", registered))
	mock.ExpectQuery("SELECT username, password, balance, registered_at FROM users").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password", "balance", "registered_at"}))

	user, err := st.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(5000)))
	assert.True(t, user.RegisteredAt.Equal(registered))

	_, err = st.GetUser(context.Background(), "bob")
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFundingRequest_UnknownUser(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectExec("INSERT INTO funding_requests").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

	err := st.AddFundingRequest(context.Background(), storagetest.NewRequest("req_1", "ghost", 10))
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFundingRequests(t *testing.T) {
	st, mock := newMockStorage(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	approved := created.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(selectFunding + " WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "amount", "method", "reference", "status", "created_at", "approved_by", "approved_at"}).
			AddRow("req_1", "alice", "100.50", "bank", "tx-1", "approved", created, "youngjoe05", approved).
			AddRow("req_2", "alice", "20", "card", "tx-2", "pending", created, nil, nil))

	requests, err := st.GetFundingRequests(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "youngjoe05", requests[0].ApprovedBy)
	require.NotNil(t, requests[0].ApprovedAt)
	assert.True(t, requests[0].ApprovedAt.Equal(approved))
	assert.True(t, requests[0].Amount.Equal(decimal.RequireFromString("100.5")))
	assert.Empty(t, requests[1].ApprovedBy)
	assert.Nil(t, requests[1].ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveFundingRequest(t *testing.T) {
	st, mock := newMockStorage(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	at := created.Add(time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE funding_requests SET status").
		WithArgs("req_1", "approved", "youngjoe05", at, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"username", "amount", "method", "reference", "status", "created_at", "approved_by", "approved_at"}).
			AddRow("alice", "5000", "bank", "tx-1", "approved", created, "youngjoe05", at))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance = balance + $1 WHERE username = $2")).
		WithArgs(sqlmock.AnyArg(), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	request, err := st.ApproveFundingRequest(context.Background(), "req_1", "youngjoe05", at)
	require.NoError(t, err)
	assert.Equal(t, "alice", request.Username)
	assert.Equal(t, "approved", request.Status)
	assert.True(t, request.Amount.Equal(decimal.NewFromInt(5000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveFundingRequest_NotPending(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE funding_requests SET status").
		WillReturnRows(sqlmock.NewRows([]string{"username"}))
	mock.ExpectQuery("SELECT status FROM funding_requests").
		WithArgs("req_1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
	mock.ExpectRollback()

	_, err := st.ApproveFundingRequest(context.Background(), "req_1", "youngjoe05", time.Now())
	var notPending *storageErrors.NotPendingError
	require.ErrorAs(t, err, &notPending)
	assert.Equal(t, "approved", notPending.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveFundingRequest_NotFound(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE funding_requests SET status").
		WillReturnRows(sqlmock.NewRows([]string{"username"}))
	mock.ExpectQuery("SELECT status FROM funding_requests").
		WithArgs("req_missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := st.ApproveFundingRequest(context.Background(), "req_missing", "youngjoe05", time.Now())
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddNewOrder(t *testing.T) {
	st, mock := newMockStorage(t)
	order := storagetest.NewOrder("ord_1", "alice", 2000)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET balance = balance - $1 WHERE username = $2 AND balance >= $1")).
		WithArgs(sqlmock.AnyArg(), "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("ord_1", "alice", order.Service, order.Quantity, order.Link, sqlmock.AnyArg(), "pending", order.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, st.AddNewOrder(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddNewOrder_InsufficientFunds(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET balance").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT balance FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("10.00"))
	mock.ExpectRollback()

	err := st.AddNewOrder(context.Background(), storagetest.NewOrder("ord_1", "alice", 2000))
	var insufficient *storageErrors.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.Equal(decimal.NewFromInt(10)))
	assert.True(t, insufficient.Required.Equal(decimal.NewFromInt(2000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddNewOrder_UnknownUser(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET balance").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT balance FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}))
	mock.ExpectRollback()

	err := st.AddNewOrder(context.Background(), storagetest.NewOrder("ord_1", "ghost", 1))
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllOrders(t *testing.T) {
	st, mock := newMockStorage(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectOrders + " ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "service", "quantity", "link", "price", "status", "created_at"}).
			AddRow("ord_1", "alice", "TikTok likes", 1000, "https://t.co/x", "199.00", "pending", created))

	orders, err := st.GetAllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1000, orders[0].Quantity)
	assert.True(t, orders[0].Price.Equal(decimal.NewFromInt(199)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelledContext(t *testing.T) {
	st, mock := newMockStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectExec("INSERT INTO users").WillReturnError(context.Canceled)

	err := st.AddNewUser(ctx, storagetest.NewUser("alice"))
	var timeout *storageErrors.ContextTimeoutExceededError
	assert.ErrorAs(t, err, &timeout)
}
