package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound       = errors.New("payment not found")
	ErrAlreadyDecided = errors.New("payment already decided")
	ErrUnknownStatus  = errors.New("unknown payment status")
)

const paymentColumns = `id, user_id, tokens, price_cents, proof_reference, status, decided_by, decided_at, reason, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, userID, tokens, priceCents int64, proofReference *string) (*Payment, error) {
	query := `
		INSERT INTO payments (user_id, tokens, price_cents, proof_reference, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + paymentColumns

	var p Payment
	err := r.db.GetContext(ctx, &p, query, userID, tokens, priceCents, proofReference)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &p, nil
}

// DecideTx moves a pending payment to its terminal state inside the
// caller's transaction. The update is guarded on status = 'pending', so
// exactly one concurrent decision can win; the loser is told whether the
// payment was missing or already decided.
func (r *repository) DecideTx(ctx context.Context, tx *sqlx.Tx, id, adminID int64, status string, reason *string) (*Payment, error) {
	if status != StatusApproved && status != StatusRejected {
		return nil, ErrUnknownStatus
	}

	query := `
		UPDATE payments
		SET status = $2, decided_by = $3, decided_at = NOW(), reason = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + paymentColumns

	var p Payment
	err := tx.GetContext(ctx, &p, query, id, status, adminID, reason)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// The guarded update matched nothing: either the id is unknown or the
	// payment already left pending.
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, id); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrAlreadyDecided
}

func (r *repository) ListPending(ctx context.Context) ([]Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending'
		ORDER BY created_at ASC
	`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Payment, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var payments []Payment
	err := r.db.SelectContext(ctx, &payments, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(tokens), 0) AS tokens
		FROM payments
		GROUP BY status
	`

	var counts []StatusCount
	err := r.db.SelectContext(ctx, &counts, query)
	if err != nil {
		return nil, err
	}

	return counts, nil
}
