package notify

import (
	"context"
	"time"
)

// Event types pushed onto the outbound queue. The chat transport pops
// them and delivers the actual messages; this side only records facts.
const (
	TypePaymentDecided  = "payment_decided"
	TypeBalanceAdjusted = "balance_adjusted"
	TypeContentUnlocked = "content_unlocked"
)

// Outcomes carried on payment_decided events.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
)

// Event is one outbound notification for a chat user.
type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	PaymentID  *int64    `json:"payment_id,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	NewBalance *int64    `json:"new_balance,omitempty"`
	Delta      *int64    `json:"delta,omitempty"`
	Note       string    `json:"note,omitempty"`
	Created    time.Time `json:"created"`
}

// Notifier is the outbound boundary toward the chat transport. Queueing
// failures are logged, never propagated: a lost notification must not
// roll back a committed ledger change.
type Notifier interface {
	PaymentDecided(ctx context.Context, userID, paymentID int64, outcome string, newBalance *int64, note string)
	BalanceAdjusted(ctx context.Context, userID, delta, newBalance int64, note string)
	ContentUnlocked(ctx context.Context, userID, newBalance int64, note string)
}
