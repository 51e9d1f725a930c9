package referral

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GrantIfFirstTx(ctx context.Context, tx *sqlx.Tx, refereeID, referrerID, amount int64, relatedPaymentID *int64) (GrantResult, error)
	Stats(ctx context.Context, referrerID int64) (*Stats, error)
	Totals(ctx context.Context) (count int64, totalBonus int64, err error)
}
