package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) Adjust(ctx context.Context, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	args := m.Called(ctx, userID, delta, reasonCode, actor, actorID, relatedPaymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AdjustTx(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	args := m.Called(ctx, tx, userID, delta, reasonCode, actor, actorID, relatedPaymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, userID, value int64, reasonCode, actor string, actorID *int64) (int64, int64, error) {
	args := m.Called(ctx, userID, value, reasonCode, actor, actorID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) Get(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ListMutations(ctx context.Context, userID int64, limit, offset int) ([]Mutation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Mutation), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) PaymentDecided(ctx context.Context, userID, paymentID int64, outcome string, newBalance *int64, note string) {
	m.Called(ctx, userID, paymentID, outcome, newBalance, note)
}

func (m *MockNotifier) BalanceAdjusted(ctx context.Context, userID, delta, newBalance int64, note string) {
	m.Called(ctx, userID, delta, newBalance, note)
}

func (m *MockNotifier) ContentUnlocked(ctx context.Context, userID, newBalance int64, note string) {
	m.Called(ctx, userID, newBalance, note)
}

func setupAdjustRouter(store Store, notifier *MockNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &Handler{store: store, notifier: notifier}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("actor_id", int64(99))
		c.Set("actor_role", "admin")
	})
	router.POST("/admin/users/:userID/tokens", handler.AdminAdjust)
	return router
}

func postAdjust(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func ptrInt64(v int64) *int64 { return &v }

func TestAdminAdjust_Add(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	router := setupAdjustRouter(store, notifier)

	store.On("Adjust", mock.Anything, int64(7), int64(40), ReasonAdminGrant, ActorAdmin, ptrInt64(99), (*int64)(nil)).
		Return(int64(140), nil)
	notifier.On("BalanceAdjusted", mock.Anything, int64(7), int64(40), int64(140), "gift")

	w := postAdjust(router, "/admin/users/7/tokens", AdminAdjustRequest{Action: "add", Amount: 40, Note: "gift"})
	require.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAdminAdjust_RemoveRecordsRevokeReason(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	router := setupAdjustRouter(store, notifier)

	// a removal must not be logged as a grant
	store.On("Adjust", mock.Anything, int64(7), int64(-40), ReasonAdminRevoke, ActorAdmin, ptrInt64(99), (*int64)(nil)).
		Return(int64(60), nil)
	notifier.On("BalanceAdjusted", mock.Anything, int64(7), int64(-40), int64(60), "")

	w := postAdjust(router, "/admin/users/7/tokens", AdminAdjustRequest{Action: "remove", Amount: 40})
	require.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAdminAdjust_SetReportsStoreDelta(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	router := setupAdjustRouter(store, notifier)

	// the delta comes out of the store's transaction, never from a
	// separate read that can race with concurrent mutations
	store.On("Set", mock.Anything, int64(7), int64(40), ReasonAdminSet, ActorAdmin, ptrInt64(99)).
		Return(int64(40), int64(-60), nil)
	notifier.On("BalanceAdjusted", mock.Anything, int64(7), int64(-60), int64(40), "")

	w := postAdjust(router, "/admin/users/7/tokens", AdminAdjustRequest{Action: "set", Amount: 40})
	require.Equal(t, http.StatusOK, w.Code)
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAdminAdjust_RemoveInsufficientBalance(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	router := setupAdjustRouter(store, notifier)

	store.On("Adjust", mock.Anything, int64(7), int64(-500), ReasonAdminRevoke, ActorAdmin, ptrInt64(99), (*int64)(nil)).
		Return(int64(0), ErrInsufficientBalance)

	w := postAdjust(router, "/admin/users/7/tokens", AdminAdjustRequest{Action: "remove", Amount: 500})
	assert.Equal(t, http.StatusConflict, w.Code)
	notifier.AssertNotCalled(t, "BalanceAdjusted")
}

func TestAdminAdjust_UnknownAction(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	router := setupAdjustRouter(store, notifier)

	w := postAdjust(router, "/admin/users/7/tokens", AdminAdjustRequest{Action: "double", Amount: 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Adjust")
	store.AssertNotCalled(t, "Set")
}
