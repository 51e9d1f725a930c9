package verification

import (
	"context"
	"errors"
	"testing"

	"tokenbot/internal/balance"
	"tokenbot/internal/payment"
	"tokenbot/internal/referral"
	"tokenbot/internal/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock repositories
type MockPaymentRepo struct{ mock.Mock }
type MockUserRepo struct{ mock.Mock }
type MockBalanceStore struct{ mock.Mock }
type MockReferralRepo struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }

func (m *MockPaymentRepo) Create(ctx context.Context, userID, tokens, priceCents int64, proofReference *string) (*payment.Payment, error) {
	args := m.Called(ctx, userID, tokens, priceCents, proofReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) Get(ctx context.Context, id int64) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) DecideTx(ctx context.Context, tx *sqlx.Tx, id, adminID int64, status string, reason *string) (*payment.Payment, error) {
	args := m.Called(ctx, tx, id, adminID, status, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) ListPending(ctx context.Context) ([]payment.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]payment.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) CountByStatus(ctx context.Context) ([]payment.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.StatusCount), args.Error(1)
}

func (m *MockUserRepo) Create(ctx context.Context, id int64, username, firstName *string, referralCode string, referredBy *int64) (*user.User, error) {
	args := m.Called(ctx, id, username, firstName, referralCode, referredBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*user.User, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) FindByReferralCode(ctx context.Context, code string) (*user.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceStore) Adjust(ctx context.Context, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	args := m.Called(ctx, userID, delta, reasonCode, actor, actorID, relatedPaymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceStore) AdjustTx(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	args := m.Called(ctx, tx, userID, delta, reasonCode, actor, actorID, relatedPaymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceStore) Set(ctx context.Context, userID, value int64, reasonCode, actor string, actorID *int64) (int64, int64, error) {
	args := m.Called(ctx, userID, value, reasonCode, actor, actorID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockBalanceStore) Get(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceStore) ListMutations(ctx context.Context, userID int64, limit, offset int) ([]balance.Mutation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]balance.Mutation), args.Error(1)
}

func (m *MockReferralRepo) GrantIfFirstTx(ctx context.Context, tx *sqlx.Tx, refereeID, referrerID, amount int64, relatedPaymentID *int64) (referral.GrantResult, error) {
	args := m.Called(ctx, tx, refereeID, referrerID, amount, relatedPaymentID)
	return args.Get(0).(referral.GrantResult), args.Error(1)
}

func (m *MockReferralRepo) Stats(ctx context.Context, referrerID int64) (*referral.Stats, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*referral.Stats), args.Error(1)
}

func (m *MockReferralRepo) Totals(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotifier) PaymentDecided(ctx context.Context, userID, paymentID int64, outcome string, newBalance *int64, note string) {
	m.Called(ctx, userID, paymentID, outcome, newBalance, note)
}

func (m *MockNotifier) BalanceAdjusted(ctx context.Context, userID, delta, newBalance int64, note string) {
	m.Called(ctx, userID, delta, newBalance, note)
}

func (m *MockNotifier) ContentUnlocked(ctx context.Context, userID, newBalance int64, note string) {
	m.Called(ctx, userID, newBalance, note)
}

type engineFixture struct {
	engine    Engine
	mock      sqlmock.Sqlmock
	payments  *MockPaymentRepo
	users     *MockUserRepo
	balances  *MockBalanceStore
	referrals *MockReferralRepo
	notifier  *MockNotifier
	close     func()
}

func setupEngine(t *testing.T, referralBonus int64) *engineFixture {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	f := &engineFixture{
		mock:      dbMock,
		payments:  new(MockPaymentRepo),
		users:     new(MockUserRepo),
		balances:  new(MockBalanceStore),
		referrals: new(MockReferralRepo),
		notifier:  new(MockNotifier),
		close:     func() { sqlxDB.Close() },
	}
	f.engine = NewEngine(sqlxDB, f.payments, f.users, f.balances, f.referrals, f.notifier, referralBonus)
	return f
}

func ptrInt64(v int64) *int64 { return &v }

func TestApprove_CreditsBuyerAndReferrer(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	approved := &payment.Payment{ID: 10, UserID: 2, Tokens: 100, Status: payment.StatusApproved}
	buyer := &user.User{ID: 2, ReferredBy: ptrInt64(1)}

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(10), int64(99), payment.StatusApproved, (*string)(nil)).
		Return(approved, nil)
	f.balances.On("AdjustTx", mock.Anything, mock.Anything, int64(2), int64(100),
		balance.ReasonPurchase, balance.ActorAdmin, ptrInt64(99), ptrInt64(10)).
		Return(int64(150), nil)
	f.users.On("FindByIDTx", mock.Anything, mock.Anything, int64(2)).Return(buyer, nil)
	f.referrals.On("GrantIfFirstTx", mock.Anything, mock.Anything, int64(2), int64(1), int64(5), ptrInt64(10)).
		Return(referral.Granted, nil)
	f.balances.On("AdjustTx", mock.Anything, mock.Anything, int64(1), int64(5),
		balance.ReasonReferralBonus, balance.ActorSystem, (*int64)(nil), ptrInt64(10)).
		Return(int64(5), nil)
	f.notifier.On("PaymentDecided", mock.Anything, int64(2), int64(10), "approved", ptrInt64(150), "").Return()

	decision, err := f.engine.Approve(context.Background(), 10, 99, 0)
	require.NoError(t, err)

	assert.Equal(t, payment.StatusApproved, decision.Payment.Status)
	assert.Equal(t, int64(150), *decision.NewBalance)
	assert.True(t, decision.ReferralGranted)
	assert.Equal(t, int64(1), *decision.ReferrerID)

	require.NoError(t, f.mock.ExpectationsWereMet())
	f.payments.AssertExpectations(t)
	f.balances.AssertExpectations(t)
	f.referrals.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestApprove_BonusTokensAddedToCredit(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	approved := &payment.Payment{ID: 10, UserID: 2, Tokens: 100, Status: payment.StatusApproved}

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(10), int64(99), payment.StatusApproved, (*string)(nil)).
		Return(approved, nil)
	// 100 package tokens + 20 admin bonus in a single credit
	f.balances.On("AdjustTx", mock.Anything, mock.Anything, int64(2), int64(120),
		balance.ReasonPurchase, balance.ActorAdmin, ptrInt64(99), ptrInt64(10)).
		Return(int64(120), nil)
	f.users.On("FindByIDTx", mock.Anything, mock.Anything, int64(2)).Return(&user.User{ID: 2}, nil)
	f.notifier.On("PaymentDecided", mock.Anything, int64(2), int64(10), "approved", ptrInt64(120), "").Return()

	decision, err := f.engine.Approve(context.Background(), 10, 99, 20)
	require.NoError(t, err)
	assert.False(t, decision.ReferralGranted)
	f.balances.AssertExpectations(t)
}

func TestApprove_SecondApprovedPaymentGrantsNoBonus(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	approved := &payment.Payment{ID: 11, UserID: 2, Tokens: 500, Status: payment.StatusApproved}
	buyer := &user.User{ID: 2, ReferredBy: ptrInt64(1)}

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(11), int64(99), payment.StatusApproved, (*string)(nil)).
		Return(approved, nil)
	f.balances.On("AdjustTx", mock.Anything, mock.Anything, int64(2), int64(500),
		balance.ReasonPurchase, balance.ActorAdmin, ptrInt64(99), ptrInt64(11)).
		Return(int64(600), nil).Once()
	f.users.On("FindByIDTx", mock.Anything, mock.Anything, int64(2)).Return(buyer, nil)
	f.referrals.On("GrantIfFirstTx", mock.Anything, mock.Anything, int64(2), int64(1), int64(5), ptrInt64(11)).
		Return(referral.AlreadyGranted, nil)
	f.notifier.On("PaymentDecided", mock.Anything, int64(2), int64(11), "approved", ptrInt64(600), "").Return()

	decision, err := f.engine.Approve(context.Background(), 11, 99, 0)
	require.NoError(t, err)

	assert.False(t, decision.ReferralGranted)
	assert.Nil(t, decision.ReferrerID)
	// the buyer credit was the only balance change
	f.balances.AssertNumberOfCalls(t, "AdjustTx", 1)
}

func TestApprove_NegativeBonus(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	_, err := f.engine.Approve(context.Background(), 10, 99, -1)
	require.ErrorIs(t, err, ErrNegativeBonus)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestApprove_AlreadyDecided(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(10), int64(99), payment.StatusApproved, (*string)(nil)).
		Return(nil, payment.ErrAlreadyDecided)

	_, err := f.engine.Approve(context.Background(), 10, 99, 0)
	require.ErrorIs(t, err, payment.ErrAlreadyDecided)

	f.balances.AssertNotCalled(t, "AdjustTx")
	f.notifier.AssertNotCalled(t, "PaymentDecided")
}

func TestApprove_CreditFailureRollsBack(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	approved := &payment.Payment{ID: 10, UserID: 2, Tokens: 100, Status: payment.StatusApproved}
	boom := errors.New("write failed")

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(10), int64(99), payment.StatusApproved, (*string)(nil)).
		Return(approved, nil)
	f.balances.On("AdjustTx", mock.Anything, mock.Anything, int64(2), int64(100),
		balance.ReasonPurchase, balance.ActorAdmin, ptrInt64(99), ptrInt64(10)).
		Return(int64(0), boom)

	_, err := f.engine.Approve(context.Background(), 10, 99, 0)
	require.ErrorIs(t, err, boom)

	require.NoError(t, f.mock.ExpectationsWereMet())
	f.notifier.AssertNotCalled(t, "PaymentDecided")
}

func TestReject_NoBalanceEffect(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	reason := "duplicate screenshot"
	rejected := &payment.Payment{ID: 10, UserID: 2, Tokens: 100, Status: payment.StatusRejected, Reason: &reason}

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(10), int64(99), payment.StatusRejected, &reason).
		Return(rejected, nil)
	f.notifier.On("PaymentDecided", mock.Anything, int64(2), int64(10), "rejected", (*int64)(nil), reason).Return()

	decision, err := f.engine.Reject(context.Background(), 10, 99, reason)
	require.NoError(t, err)

	assert.Equal(t, payment.StatusRejected, decision.Payment.Status)
	assert.Nil(t, decision.NewBalance)

	f.balances.AssertNotCalled(t, "AdjustTx")
	f.referrals.AssertNotCalled(t, "GrantIfFirstTx")
	f.notifier.AssertExpectations(t)
}

func TestReject_NotFound(t *testing.T) {
	f := setupEngine(t, 5)
	defer f.close()

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	f.payments.On("DecideTx", mock.Anything, mock.Anything, int64(404), int64(99), payment.StatusRejected, (*string)(nil)).
		Return(nil, payment.ErrNotFound)

	_, err := f.engine.Reject(context.Background(), 404, 99, "")
	require.ErrorIs(t, err, payment.ErrNotFound)
	f.notifier.AssertNotCalled(t, "PaymentDecided")
}
