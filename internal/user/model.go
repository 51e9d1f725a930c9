package user

import "time"

// User is a chat user known to the ledger. ID is the chat platform's
// identity and never changes. Balance is owned by the balance store and
// must never be written outside it.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     *string   `db:"username" json:"username,omitempty"`
	FirstName    *string   `db:"first_name" json:"first_name,omitempty"`
	Balance      int64     `db:"balance" json:"balance"`
	ReferralCode string    `db:"referral_code" json:"referral_code"`
	ReferredBy   *int64    `db:"referred_by" json:"referred_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
