package payment

import "time"

// Payment lifecycle states. Pending is the only non-terminal state; a
// decided payment is never mutated again.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Payment struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Tokens         int64      `db:"tokens" json:"tokens"`
	PriceCents     int64      `db:"price_cents" json:"price_cents"`
	ProofReference *string    `db:"proof_reference" json:"proof_reference,omitempty"`
	Status         string     `db:"status" json:"status"`
	DecidedBy      *int64     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt      *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// StatusCount is one row of the per-status aggregate used by admin stats.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int64  `db:"count" json:"count"`
	Tokens int64  `db:"tokens" json:"tokens"`
}
