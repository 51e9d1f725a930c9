package payment

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, userID, tokens, priceCents int64, proofReference *string) (*Payment, error)
	Get(ctx context.Context, id int64) (*Payment, error)
	DecideTx(ctx context.Context, tx *sqlx.Tx, id, adminID int64, status string, reason *string) (*Payment, error)
	ListPending(ctx context.Context) ([]Payment, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Payment, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}
