package user

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Create(ctx context.Context, id int64, username, firstName *string, referralCode string, referredBy *int64) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*User, error)
	FindByReferralCode(ctx context.Context, code string) (*User, error)
	Count(ctx context.Context) (int64, error)
}
