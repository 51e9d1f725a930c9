package referral

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// GrantIfFirstTx inserts the credit row for the referee unless one
// already exists. ON CONFLICT DO NOTHING against the unique referee_id
// constraint makes the check-and-insert a single atomic statement, so
// concurrent approvals of the same referee's payments cannot both grant.
func (r *repository) GrantIfFirstTx(ctx context.Context, tx *sqlx.Tx, refereeID, referrerID, amount int64, relatedPaymentID *int64) (GrantResult, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO referral_credits (referrer_id, referee_id, amount, related_payment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (referee_id) DO NOTHING
	`, referrerID, refereeID, amount, relatedPaymentID)
	if err != nil {
		return AlreadyGranted, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return AlreadyGranted, err
	}

	if rows == 0 {
		return AlreadyGranted, nil
	}
	return Granted, nil
}

func (r *repository) Stats(ctx context.Context, referrerID int64) (*Stats, error) {
	stats := &Stats{ReferrerID: referrerID}
	err := r.db.GetContext(ctx, stats, `
		SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_bonus
		FROM referral_credits
		WHERE referrer_id = $1
	`, referrerID)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *repository) Totals(ctx context.Context) (int64, int64, error) {
	var totals struct {
		Count      int64 `db:"count"`
		TotalBonus int64 `db:"total_bonus"`
	}
	err := r.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_bonus
		FROM referral_credits
	`)
	if err != nil {
		return 0, 0, err
	}

	return totals.Count, totals.TotalBonus, nil
}
