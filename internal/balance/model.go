package balance

import "time"

// Reason codes recorded on every balance mutation.
const (
	ReasonPurchase      = "purchase"
	ReasonReferralBonus = "referral_bonus"
	ReasonAdminGrant    = "admin_grant"
	ReasonAdminRevoke   = "admin_revoke"
	ReasonAdminSet      = "admin_set"
	ReasonContentUnlock = "content_unlock"
	ReasonRefund        = "refund"
)

// Actor kinds for the audit trail.
const (
	ActorUser   = "user"
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// Mutation is one append-only audit record. The cached users.balance is
// always the sum of a user's mutation deltas.
type Mutation struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"user_id"`
	Delta            int64     `db:"delta" json:"delta"`
	ReasonCode       string    `db:"reason_code" json:"reason_code"`
	Actor            string    `db:"actor" json:"actor"`
	ActorID          *int64    `db:"actor_id" json:"actor_id,omitempty"`
	RelatedPaymentID *int64    `db:"related_payment_id" json:"related_payment_id,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
