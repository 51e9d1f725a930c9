package verification

import (
	"context"
	"errors"

	"tokenbot/internal/balance"
	"tokenbot/internal/db"
	"tokenbot/internal/logger"
	"tokenbot/internal/metrics"
	"tokenbot/internal/notify"
	"tokenbot/internal/payment"
	"tokenbot/internal/referral"
	"tokenbot/internal/user"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/jmoiron/sqlx"
)

var ErrNegativeBonus = errors.New("bonus tokens must not be negative")

// Decision is the outcome of an admin verification.
type Decision struct {
	Payment         *payment.Payment `json:"payment"`
	NewBalance      *int64           `json:"new_balance,omitempty"`
	ReferralGranted bool             `json:"referral_granted"`
	ReferrerID      *int64           `json:"referrer_id,omitempty"`
}

// Engine drives a payment's one-shot state machine:
// pending -> approved or pending -> rejected, nothing else.
type Engine interface {
	Approve(ctx context.Context, paymentID, adminID, bonusTokens int64) (*Decision, error)
	Reject(ctx context.Context, paymentID, adminID int64, reason string) (*Decision, error)
}

type engine struct {
	db            *sqlx.DB
	payments      payment.Repository
	users         user.Repository
	balances      balance.Store
	referrals     referral.Repository
	notifier      notify.Notifier
	referralBonus int64
	retry         retrypolicy.RetryPolicy[any]
}

func NewEngine(
	database *sqlx.DB,
	payments payment.Repository,
	users user.Repository,
	balances balance.Store,
	referrals referral.Repository,
	notifier notify.Notifier,
	referralBonus int64,
) Engine {
	return &engine{
		db:            database,
		payments:      payments,
		users:         users,
		balances:      balances,
		referrals:     referrals,
		notifier:      notifier,
		referralBonus: referralBonus,
		retry:         db.NewRetryPolicy(),
	}
}

// Approve runs the whole approval in one database transaction: the
// payment moves to approved, the buyer is credited, and on the referee's
// first approved payment the referrer gets the configured bonus. Either
// all of it commits or none of it does. Concurrent decisions on the same
// payment serialize on the payment row; the loser gets ErrAlreadyDecided.
func (e *engine) Approve(ctx context.Context, paymentID, adminID, bonusTokens int64) (*Decision, error) {
	if bonusTokens < 0 {
		return nil, ErrNegativeBonus
	}

	decision := &Decision{}
	err := db.WithRetry(ctx, e.retry, func() error {
		tx, err := e.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		p, err := e.payments.DecideTx(ctx, tx, paymentID, adminID, payment.StatusApproved, nil)
		if err != nil {
			return err
		}

		newBalance, err := e.balances.AdjustTx(ctx, tx, p.UserID, p.Tokens+bonusTokens,
			balance.ReasonPurchase, balance.ActorAdmin, &adminID, &p.ID)
		if err != nil {
			return err
		}

		buyer, err := e.users.FindByIDTx(ctx, tx, p.UserID)
		if err != nil {
			return err
		}

		granted := false
		var referrerID *int64
		if buyer.ReferredBy != nil {
			result, err := e.referrals.GrantIfFirstTx(ctx, tx, p.UserID, *buyer.ReferredBy, e.referralBonus, &p.ID)
			if err != nil {
				return err
			}
			if result == referral.Granted {
				if _, err := e.balances.AdjustTx(ctx, tx, *buyer.ReferredBy, e.referralBonus,
					balance.ReasonReferralBonus, balance.ActorSystem, nil, &p.ID); err != nil {
					return err
				}
				granted = true
				referrerID = buyer.ReferredBy
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		decision.Payment = p
		decision.NewBalance = &newBalance
		decision.ReferralGranted = granted
		decision.ReferrerID = referrerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentDecided(notify.OutcomeApproved)
	metrics.RecordTokens(decision.Payment.Tokens+bonusTokens, balance.ReasonPurchase)
	if decision.ReferralGranted {
		metrics.RecordReferralBonus()
		metrics.RecordTokens(e.referralBonus, balance.ReasonReferralBonus)
	}

	e.notifier.PaymentDecided(ctx, decision.Payment.UserID, decision.Payment.ID,
		notify.OutcomeApproved, decision.NewBalance, "")

	logger.Infof("Payment %d approved by admin %d: %d tokens for user %d (referral granted: %v)",
		decision.Payment.ID, adminID, decision.Payment.Tokens+bonusTokens,
		decision.Payment.UserID, decision.ReferralGranted)

	return decision, nil
}

// Reject moves the payment to rejected. No balance or referral effect.
func (e *engine) Reject(ctx context.Context, paymentID, adminID int64, reason string) (*Decision, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	decision := &Decision{}
	err := db.WithRetry(ctx, e.retry, func() error {
		tx, err := e.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		p, err := e.payments.DecideTx(ctx, tx, paymentID, adminID, payment.StatusRejected, reasonPtr)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}

		decision.Payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPaymentDecided(notify.OutcomeRejected)
	e.notifier.PaymentDecided(ctx, decision.Payment.UserID, decision.Payment.ID,
		notify.OutcomeRejected, nil, reason)

	logger.Infof("Payment %d rejected by admin %d: %s", decision.Payment.ID, adminID, reason)

	return decision, nil
}
