package server

import (
	"net/http"

	"tokenbot/internal/api"
	"tokenbot/internal/payment"
	"tokenbot/internal/referral"
	"tokenbot/internal/user"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	users     user.Repository
	payments  payment.Repository
	referrals referral.Repository
}

func NewStatsHandler(users user.Repository, payments payment.Repository, referrals referral.Repository) *StatsHandler {
	return &StatsHandler{
		users:     users,
		payments:  payments,
		referrals: referrals,
	}
}

type StatsResponse struct {
	Users              int64                 `json:"users"`
	Payments           []payment.StatusCount `json:"payments"`
	ReferralBonuses    int64                 `json:"referral_bonuses"`
	ReferralBonusTotal int64                 `json:"referral_bonus_total"`
}

// GetStats godoc
// @Summary      Service totals
// @Description  User count, payment counts per status and granted referral bonuses.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  StatsResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /admin/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.users.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load stats"})
		return
	}

	payments, err := h.payments.CountByStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load stats"})
		return
	}

	bonusCount, bonusTotal, err := h.referrals.Totals(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		Users:              users,
		Payments:           payments,
		ReferralBonuses:    bonusCount,
		ReferralBonusTotal: bonusTotal,
	})
}
