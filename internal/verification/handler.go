package verification

import (
	"errors"
	"net/http"
	"strconv"

	"tokenbot/internal/auth"
	"tokenbot/internal/balance"
	"tokenbot/internal/db"
	"tokenbot/internal/payment"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

type ApproveRequest struct {
	BonusTokens int64 `json:"bonus_tokens"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

// Approve godoc
// @Summary      Approve payment
// @Description  Marks the payment approved and credits the buyer (plus the referrer's one-time bonus) atomically.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int             true   "Payment ID"
// @Param        request    body      ApproveRequest  false  "Optional bonus tokens"
// @Success      200        {object}  Decision
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      503        {object}  gin.H
// @Router       /admin/payments/{paymentID}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	paymentID, ok := parsePaymentID(c)
	if !ok {
		return
	}

	adminID, _ := auth.GetActorID(c)

	var req ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	decision, err := h.engine.Approve(c.Request.Context(), paymentID, adminID, req.BonusTokens)
	if err != nil {
		respondDecisionError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// Reject godoc
// @Summary      Reject payment
// @Description  Marks the payment rejected. No tokens move.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        paymentID  path      int            true   "Payment ID"
// @Param        request    body      RejectRequest  false  "Optional rejection reason"
// @Success      200        {object}  Decision
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      503        {object}  gin.H
// @Router       /admin/payments/{paymentID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	paymentID, ok := parsePaymentID(c)
	if !ok {
		return
	}

	adminID, _ := auth.GetActorID(c)

	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	decision, err := h.engine.Reject(c.Request.Context(), paymentID, adminID, req.Reason)
	if err != nil {
		respondDecisionError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

func parsePaymentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return 0, false
	}
	return id, true
}

// respondDecisionError maps engine errors onto operator-facing statuses.
// An already-decided payment is an operator mistake, reported as a
// conflict rather than retried.
func respondDecisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNegativeBonus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bonus_tokens must not be negative"})
	case errors.Is(err, payment.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
	case errors.Is(err, payment.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"error": "payment already decided"})
	case errors.Is(err, balance.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, db.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process decision"})
	}
}
