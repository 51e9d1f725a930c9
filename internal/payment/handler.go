package payment

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tokenbot/internal/config"
	"tokenbot/internal/db"
	"tokenbot/internal/logger"
	"tokenbot/internal/metrics"
	"tokenbot/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo    Repository
	cfg     *config.Config
	limiter *ratelimit.Limiter
}

func NewHandler(database *sqlx.DB, cfg *config.Config, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		repo:    NewRepository(database),
		cfg:     cfg,
		limiter: limiter,
	}
}

type PurchaseRequest struct {
	UserID         int64  `json:"user_id" binding:"required"`
	Tokens         int64  `json:"tokens" binding:"required"`
	ProofReference string `json:"proof_reference"`
}

// RequestPurchase godoc
// @Summary      Request token purchase
// @Description  Records a pending payment for admin verification. No tokens are credited yet.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PurchaseRequest  true  "Purchase"
// @Success      201      {object}  Payment
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      429      {object}  gin.H
// @Router       /purchases [post]
func (h *Handler) RequestPurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and tokens are required"})
		return
	}

	if !h.limiter.Allow(req.UserID, ratelimit.ClassBuy, time.Now()) {
		metrics.RecordRateLimited(ratelimit.ClassBuy)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many purchase requests, slow down"})
		return
	}

	pkg, ok := h.cfg.FindPackage(req.Tokens)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown token package"})
		return
	}

	var proofRef *string
	if req.ProofReference != "" {
		proofRef = &req.ProofReference
	}

	p, err := h.repo.Create(c.Request.Context(), req.UserID, pkg.Tokens, pkg.PriceCents, proofRef)
	if err != nil {
		if db.IsForeignKeyViolation(err, "payments_user_id_fkey") {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record purchase request"})
		return
	}

	metrics.RecordPaymentCreated()
	logger.Infof("User %d requested payment %d for %d tokens", p.UserID, p.ID, p.Tokens)

	c.JSON(http.StatusCreated, p)
}

// GetPayment godoc
// @Summary      Get payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        paymentID  path      int  true  "Payment ID"
// @Success      200        {object}  Payment
// @Failure      404        {object}  gin.H
// @Router       /payments/{paymentID} [get]
func (h *Handler) GetPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	p, err := h.repo.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// ListByUser godoc
// @Summary      List user payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      int  true  "Chat user ID"
// @Success      200     {array}   Payment
// @Failure      500     {object}  gin.H
// @Router       /users/{userID}/payments [get]
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.repo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListPending godoc
// @Summary      List pending payments
// @Description  Oldest first, for the admin verification queue.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Payment
// @Failure      500  {object}  gin.H
// @Router       /admin/payments/pending [get]
func (h *Handler) ListPending(c *gin.Context) {
	payments, err := h.repo.ListPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pending payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// ListPackages godoc
// @Summary      List token packages
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  config.Package
// @Router       /packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.Packages)
}
