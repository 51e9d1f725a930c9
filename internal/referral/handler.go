package referral

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo Repository
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{repo: NewRepository(db)}
}

// GetStats godoc
// @Summary      Referral stats
// @Description  Returns how many referees earned the referrer a bonus and the bonus total.
// @Tags         referrals
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      int  true  "Referrer chat user ID"
// @Success      200     {object}  Stats
// @Failure      400     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /users/{userID}/referrals [get]
func (h *Handler) GetStats(c *gin.Context) {
	referrerID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || referrerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	stats, err := h.repo.Stats(c.Request.Context(), referrerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load referral stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
