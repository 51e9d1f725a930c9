package referral

import "time"

// Credit records a one-time bonus granted to a referrer for a referee's
// first approved payment. The unique constraint on referee_id is what
// enforces "one bonus per referred user".
type Credit struct {
	ID               int64     `db:"id" json:"id"`
	ReferrerID       int64     `db:"referrer_id" json:"referrer_id"`
	RefereeID        int64     `db:"referee_id" json:"referee_id"`
	Amount           int64     `db:"amount" json:"amount"`
	RelatedPaymentID *int64    `db:"related_payment_id" json:"related_payment_id,omitempty"`
	GrantedAt        time.Time `db:"granted_at" json:"granted_at"`
}

// Stats aggregates a referrer's granted credits.
type Stats struct {
	ReferrerID int64 `db:"-" json:"referrer_id"`
	Count      int64 `db:"count" json:"count"`
	TotalBonus int64 `db:"total_bonus" json:"total_bonus"`
}

// GrantResult tells the caller whether a credit row was inserted.
type GrantResult int

const (
	Granted GrantResult = iota
	AlreadyGranted
)
