package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tokenbot/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEngine struct{ mock.Mock }

func (m *MockEngine) Approve(ctx context.Context, paymentID, adminID, bonusTokens int64) (*Decision, error) {
	args := m.Called(ctx, paymentID, adminID, bonusTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func (m *MockEngine) Reject(ctx context.Context, paymentID, adminID int64, reason string) (*Decision, error) {
	args := m.Called(ctx, paymentID, adminID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Decision), args.Error(1)
}

func setupRouter(engine Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(engine)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("actor_id", int64(99))
		c.Set("actor_role", "admin")
	})
	router.POST("/admin/payments/:paymentID/approve", handler.Approve)
	router.POST("/admin/payments/:paymentID/reject", handler.Reject)
	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest("POST", path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestApproveHandler_OK(t *testing.T) {
	engine := new(MockEngine)
	router := setupRouter(engine)

	newBalance := int64(150)
	engine.On("Approve", mock.Anything, int64(10), int64(99), int64(20)).
		Return(&Decision{
			Payment:    &payment.Payment{ID: 10, UserID: 2, Status: payment.StatusApproved},
			NewBalance: &newBalance,
		}, nil)

	w := postJSON(router, "/admin/payments/10/approve", ApproveRequest{BonusTokens: 20})
	require.Equal(t, http.StatusOK, w.Code)

	var decision Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, int64(150), *decision.NewBalance)
	engine.AssertExpectations(t)
}

func TestApproveHandler_EmptyBodyMeansNoBonus(t *testing.T) {
	engine := new(MockEngine)
	router := setupRouter(engine)

	engine.On("Approve", mock.Anything, int64(10), int64(99), int64(0)).
		Return(&Decision{Payment: &payment.Payment{ID: 10, Status: payment.StatusApproved}}, nil)

	w := postJSON(router, "/admin/payments/10/approve", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	engine.AssertExpectations(t)
}

func TestApproveHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		engineErr      error
		expectedStatus int
	}{
		{"Not found", payment.ErrNotFound, http.StatusNotFound},
		{"Already decided", payment.ErrAlreadyDecided, http.StatusConflict},
		{"Negative bonus", ErrNegativeBonus, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			router := setupRouter(engine)

			engine.On("Approve", mock.Anything, int64(10), int64(99), int64(0)).
				Return(nil, tt.engineErr)

			w := postJSON(router, "/admin/payments/10/approve", nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestApproveHandler_BadPaymentID(t *testing.T) {
	engine := new(MockEngine)
	router := setupRouter(engine)

	w := postJSON(router, "/admin/payments/abc/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	engine.AssertNotCalled(t, "Approve")
}

func TestRejectHandler_OK(t *testing.T) {
	engine := new(MockEngine)
	router := setupRouter(engine)

	engine.On("Reject", mock.Anything, int64(10), int64(99), "blurry screenshot").
		Return(&Decision{Payment: &payment.Payment{ID: 10, Status: payment.StatusRejected}}, nil)

	w := postJSON(router, "/admin/payments/10/reject", RejectRequest{Reason: "blurry screenshot"})
	require.Equal(t, http.StatusOK, w.Code)
	engine.AssertExpectations(t)
}

func TestRejectHandler_AlreadyDecided(t *testing.T) {
	engine := new(MockEngine)
	router := setupRouter(engine)

	engine.On("Reject", mock.Anything, int64(10), int64(99), "").
		Return(nil, payment.ErrAlreadyDecided)

	w := postJSON(router, "/admin/payments/10/reject", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}
