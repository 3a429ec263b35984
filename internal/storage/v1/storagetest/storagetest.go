// Package storagetest provides a behavioural test suite shared by all storage implementations.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-panel/internal/models/modelstorage"
	storage "github.com/danilovkiri/dk-go-panel/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-panel/internal/storage/v1/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty storage. Cleanup is registered on t.
type Factory func(t *testing.T) storage.Storage

// Run executes the whole suite against storages produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStorage(t)) })
	t.Run("funding requests", func(t *testing.T) { testFundingRequests(t, newStorage(t)) })
	t.Run("approval", func(t *testing.T) { testApproval(t, newStorage(t)) })
	t.Run("orders", func(t *testing.T) { testOrders(t, newStorage(t)) })
	t.Run("concurrent orders", func(t *testing.T) { testConcurrentOrders(t, newStorage(t)) })
	t.Run("concurrent approvals", func(t *testing.T) { testConcurrentApprovals(t, newStorage(t)) })
	t.Run("cancelled context", func(t *testing.T) { testCancelledContext(t, newStorage(t)) })
}

// NewUser builds a user record with a zero balance.
func NewUser(username string) modelstorage.User {
	return modelstorage.User{
		Username:     username,
		Password:     "$2a$10$hash-of-" + username,
		Balance:      decimal.Zero,
		RegisteredAt: time.Now().UTC().Truncate(time.Second),
	}
}

// NewRequest builds a pending funding request.
func NewRequest(id, username string, amount int64) modelstorage.FundingRequest {
	return modelstorage.FundingRequest{
		ID:        id,
		Username:  username,
		Amount:    decimal.NewFromInt(amount),
		Method:    "bank transfer",
		Reference: "ref-" + id,
		Status:    modelstorage.StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// NewOrder builds a pending order.
func NewOrder(id, username string, price int64) modelstorage.Order {
	return modelstorage.Order{
		ID:        id,
		Username:  username,
		Service:   "TikTok shares",
		Quantity:  100,
		Link:      "https://tiktok.com/@someone/video/1",
		Price:     decimal.NewFromInt(price),
		Status:    modelstorage.StatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func testUsers(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))

	err := st.AddNewUser(ctx, NewUser("alice"))
	var alreadyExists *storageErrors.AlreadyExistsError
	require.ErrorAs(t, err, &alreadyExists)
	assert.Equal(t, "alice", alreadyExists.ID)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "$2a$10$hash-of-alice", user.Password)
	assert.True(t, user.Balance.IsZero())

	_, err = st.GetUser(ctx, "bob")
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func testFundingRequests(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	err := st.AddFundingRequest(ctx, NewRequest("req_0", "ghost", 10))
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)

	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))
	require.NoError(t, st.AddNewUser(ctx, NewUser("bob")))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_1", "alice", 100)))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_2", "bob", 200)))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_3", "alice", 300)))

	own, err := st.GetFundingRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "req_1", own[0].ID)
	assert.Equal(t, "req_3", own[1].ID)
	assert.Equal(t, modelstorage.StatusPending, own[0].Status)
	assert.True(t, own[1].Amount.Equal(decimal.NewFromInt(300)))

	none, err := st.GetFundingRequests(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := st.GetAllFundingRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "requesting funds must not touch the balance")
}

func testApproval(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_1", "alice", 5000)))

	_, err := st.ApproveFundingRequest(ctx, "req_missing", "admin", time.Now())
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)

	at := time.Now().UTC().Truncate(time.Second)
	approved, err := st.ApproveFundingRequest(ctx, "req_1", "admin", at)
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusApproved, approved.Status)
	assert.Equal(t, "admin", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(at))

	_, err = st.ApproveFundingRequest(ctx, "req_1", "admin", time.Now())
	var notPending *storageErrors.NotPendingError
	require.ErrorAs(t, err, &notPending)
	assert.Equal(t, modelstorage.StatusApproved, notPending.Status)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(5000)), "balance must be credited exactly once, got %s", user.Balance)

	stored, err := st.GetFundingRequests(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, modelstorage.StatusApproved, stored[0].Status)
}

func testOrders(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	err := st.AddNewOrder(ctx, NewOrder("ord_0", "ghost", 1))
	var notFound *storageErrors.NotFoundError
	require.ErrorAs(t, err, &notFound)

	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))
	require.NoError(t, st.AddNewUser(ctx, NewUser("bob")))

	err = st.AddNewOrder(ctx, NewOrder("ord_1", "alice", 2000))
	var insufficient *storageErrors.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Balance.IsZero())
	assert.True(t, insufficient.Required.Equal(decimal.NewFromInt(2000)))

	orders, err := st.GetOrders(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, orders, "a rejected order must not be stored")

	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_1", "alice", 5000)))
	_, err = st.ApproveFundingRequest(ctx, "req_1", "admin", time.Now())
	require.NoError(t, err)

	require.NoError(t, st.AddNewOrder(ctx, NewOrder("ord_2", "alice", 2000)))
	require.NoError(t, st.AddNewOrder(ctx, NewOrder("ord_3", "alice", 3000)))
	err = st.AddNewOrder(ctx, NewOrder("ord_4", "alice", 1))
	require.ErrorAs(t, err, &insufficient)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "got %s", user.Balance)

	orders, err = st.GetOrders(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord_2", orders[0].ID)
	assert.Equal(t, "ord_3", orders[1].ID)
	assert.Equal(t, modelstorage.StatusPending, orders[0].Status)
	assert.Equal(t, 100, orders[0].Quantity)

	bobs, err := st.GetOrders(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobs)

	all, err := st.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testConcurrentOrders(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_1", "alice", 1000)))
	_, err := st.ApproveFundingRequest(ctx, "req_1", "admin", time.Now())
	require.NoError(t, err)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := st.AddNewOrder(ctx, NewOrder(fmt.Sprintf("ord_%02d", i), "alice", 100))
			mu.Lock()
			defer mu.Unlock()
			var insufficient *storageErrors.InsufficientFundsError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &insufficient):
			default:
				failures = append(failures, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 10, succeeded)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "got %s", user.Balance)

	orders, err := st.GetOrders(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, orders, 10)
}

func testConcurrentApprovals(t *testing.T, st storage.Storage) {
	ctx := context.Background()
	require.NoError(t, st.AddNewUser(ctx, NewUser("alice")))
	require.NoError(t, st.AddFundingRequest(ctx, NewRequest("req_1", "alice", 700)))

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.ApproveFundingRequest(ctx, "req_1", "admin", time.Now())
			mu.Lock()
			defer mu.Unlock()
			var notPending *storageErrors.NotPendingError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &notPending):
			default:
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 1, succeeded)

	user, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(700)), "got %s", user.Balance)
}

func testCancelledContext(t *testing.T, st storage.Storage) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.AddNewUser(ctx, NewUser("alice"))
	var timeout *storageErrors.ContextTimeoutExceededError
	require.ErrorAs(t, err, &timeout)

	_, err = st.GetUser(context.Background(), "alice")
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound, "a cancelled call must not mutate the storage")
}
