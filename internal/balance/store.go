package balance

import (
	"context"
	"database/sql"
	"errors"

	"tokenbot/internal/db"

	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrNegativeValue       = errors.New("balance value must not be negative")
)

type store struct {
	db    *sqlx.DB
	retry retrypolicy.RetryPolicy[any]
}

func NewStore(database *sqlx.DB) Store {
	return &store{
		db:    database,
		retry: db.NewRetryPolicy(),
	}
}

// Adjust applies delta to the user's balance and appends the audit
// mutation in one transaction. The whole transaction is retried on
// transient storage failures; it either commits fully or not at all.
func (s *store) Adjust(ctx context.Context, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	var newBalance int64
	err := db.WithRetry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		newBalance, err = s.AdjustTx(ctx, tx, userID, delta, reasonCode, actor, actorID, relatedPaymentID)
		if err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// AdjustTx is the transactional core: it locks the user row, rejects a
// debit that would go negative, writes the new balance, and appends the
// mutation record. Callers own the transaction.
func (s *store) AdjustTx(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error) {
	current, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	newBalance := current + delta
	if newBalance < 0 {
		return 0, ErrInsufficientBalance
	}

	if err := writeBalance(ctx, tx, userID, newBalance); err != nil {
		return 0, err
	}

	if err := appendMutation(ctx, tx, userID, delta, reasonCode, actor, actorID, relatedPaymentID); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Set overrides the balance to an absolute value. The audit record keeps
// the equivalent delta so the mutation log still sums to the balance, and
// that delta is returned so callers report exactly what was recorded
// instead of re-deriving it from a racy read.
func (s *store) Set(ctx context.Context, userID, value int64, reasonCode, actor string, actorID *int64) (int64, int64, error) {
	if value < 0 {
		return 0, 0, ErrNegativeValue
	}

	var delta int64
	err := db.WithRetry(ctx, s.retry, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		current, err := lockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		delta = value - current

		if err := writeBalance(ctx, tx, userID, value); err != nil {
			return err
		}

		if err := appendMutation(ctx, tx, userID, delta, reasonCode, actor, actorID, nil); err != nil {
			return err
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, 0, err
	}
	return value, delta, nil
}

func (s *store) Get(ctx context.Context, userID int64) (int64, error) {
	var bal int64
	err := s.db.GetContext(ctx, &bal, `SELECT balance FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return bal, nil
}

func (s *store) ListMutations(ctx context.Context, userID int64, limit, offset int) ([]Mutation, error) {
	if limit <= 0 {
		limit = 50
	}

	var mutations []Mutation
	err := s.db.SelectContext(ctx, &mutations, `
		SELECT id, user_id, delta, reason_code, actor, actor_id, related_payment_id, created_at
		FROM balance_mutations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return mutations, nil
}

func lockBalance(ctx context.Context, tx *sqlx.Tx, userID int64) (int64, error) {
	var current int64
	err := tx.GetContext(ctx, &current,
		`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return current, nil
}

func writeBalance(ctx context.Context, tx *sqlx.Tx, userID, newBalance int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = $1 WHERE id = $2`, newBalance, userID)
	return err
}

func appendMutation(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balance_mutations (user_id, delta, reason_code, actor, actor_id, related_payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, delta, reasonCode, actor, actorID, relatedPaymentID)
	return err
}
