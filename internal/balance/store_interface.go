package balance

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Store owns users.balance and balance_mutations. Every mutation goes
// through Adjust or Set; nothing else writes the balance column.
type Store interface {
	Adjust(ctx context.Context, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error)
	AdjustTx(ctx context.Context, tx *sqlx.Tx, userID, delta int64, reasonCode, actor string, actorID, relatedPaymentID *int64) (int64, error)
	Set(ctx context.Context, userID, value int64, reasonCode, actor string, actorID *int64) (newBalance, delta int64, err error)
	Get(ctx context.Context, userID int64) (int64, error)
	ListMutations(ctx context.Context, userID int64, limit, offset int) ([]Mutation, error)
}
