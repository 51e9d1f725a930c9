package user

import (
	"context"
	"errors"
	"strings"

	"tokenbot/internal/db"
	"tokenbot/internal/logger"

	"github.com/google/uuid"
)

const referralCodeLength = 8

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

type RegisterRequest struct {
	ID           int64   `json:"id" binding:"required"`
	Username     *string `json:"username"`
	FirstName    *string `json:"first_name"`
	ReferralCode string  `json:"referral_code"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Register creates the user on first contact. Re-registering an existing
// user returns the stored record unchanged, so the gateway can treat every
// /start as a registration. A referral code that does not resolve, or that
// belongs to the user themselves, is dropped rather than rejected.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if existing, err := s.repo.FindByID(ctx, req.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var referredBy *int64
	if req.ReferralCode != "" {
		referrer, err := s.repo.FindByReferralCode(ctx, strings.ToUpper(strings.TrimSpace(req.ReferralCode)))
		switch {
		case err == nil && referrer.ID != req.ID:
			referredBy = &referrer.ID
		case errors.Is(err, ErrNotFound):
			logger.Infof("Unknown referral code %q for user %d, ignoring", req.ReferralCode, req.ID)
		case err != nil:
			return nil, err
		}
	}

	for attempt := 0; attempt < 3; attempt++ {
		u, err := s.repo.Create(ctx, req.ID, req.Username, req.FirstName, newReferralCode(), referredBy)
		if err == nil {
			logger.Infof("User created: %d, referred by: %v", u.ID, referredBy)
			return u, nil
		}
		if db.IsUniqueViolation(err, "users_referral_code_key") {
			continue // collided with an existing code, roll a new one
		}
		if db.IsUniqueViolation(err, "users_pkey") {
			// lost a race with a concurrent registration for the same user
			return s.repo.FindByID(ctx, req.ID)
		}
		return nil, err
	}

	return nil, errors.New("could not generate a unique referral code")
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// newReferralCode returns a short uppercase code shared with users in
// chat messages (t.me deep links).
func newReferralCode() string {
	return strings.ToUpper(uuid.NewString()[:referralCodeLength])
}
