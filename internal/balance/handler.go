package balance

import (
	"errors"
	"net/http"
	"strconv"

	"tokenbot/internal/db"
	"tokenbot/internal/logger"
	"tokenbot/internal/metrics"
	"tokenbot/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	store    Store
	notifier notify.Notifier
}

func NewHandler(database *sqlx.DB, notifier notify.Notifier) *Handler {
	return &Handler{
		store:    NewStore(database),
		notifier: notifier,
	}
}

type AdminAdjustRequest struct {
	Action string `json:"action" binding:"required"`
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// GetBalance godoc
// @Summary      Query balance
// @Tags         balances
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      int  true  "Chat user ID"
// @Success      200     {object}  gin.H
// @Failure      404     {object}  gin.H
// @Router       /users/{userID}/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	bal, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": bal})
}

// ListMutations godoc
// @Summary      List balance mutations
// @Description  Returns the append-only audit log of a user's balance changes.
// @Tags         balances
// @Security     BearerAuth
// @Produce      json
// @Param        userID  path      int     true   "Chat user ID"
// @Param        limit   query     int     false  "Page size"
// @Param        offset  query     int     false  "Page offset"
// @Success      200     {array}   Mutation
// @Failure      500     {object}  gin.H
// @Router       /users/{userID}/mutations [get]
func (h *Handler) ListMutations(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	mutations, err := h.store.ListMutations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load mutations"})
		return
	}

	c.JSON(http.StatusOK, mutations)
}

// AdminAdjust godoc
// @Summary      Adjust user tokens
// @Description  Admin add/remove/set of a user's token balance, recorded in the audit log.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        userID   path      int                 true  "Chat user ID"
// @Param        request  body      AdminAdjustRequest  true  "Adjustment"
// @Success      200      {object}  gin.H
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Router       /admin/users/{userID}/tokens [post]
func (h *Handler) AdminAdjust(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	adminID := actorID(c)

	var req AdminAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var (
		newBalance int64
		delta      int64
		err        error
	)

	ctx := c.Request.Context()
	switch req.Action {
	case "add":
		if req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		delta = req.Amount
		newBalance, err = h.store.Adjust(ctx, userID, req.Amount, ReasonAdminGrant, ActorAdmin, adminID, nil)
	case "remove":
		if req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
			return
		}
		delta = -req.Amount
		newBalance, err = h.store.Adjust(ctx, userID, -req.Amount, ReasonAdminRevoke, ActorAdmin, adminID, nil)
	case "set":
		if req.Amount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
			return
		}
		// the store reports the delta it recorded in the same transaction
		newBalance, delta, err = h.store.Set(ctx, userID, req.Amount, ReasonAdminSet, ActorAdmin, adminID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be add, remove or set"})
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "user balance too low for this removal"})
		case errors.Is(err, db.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to adjust balance"})
		}
		return
	}

	metrics.RecordTokens(delta, reasonForAction(req.Action))
	h.notifier.BalanceAdjusted(ctx, userID, delta, newBalance, req.Note)
	logger.Infof("Admin adjusted tokens for user %d: action=%s amount=%d new_balance=%d", userID, req.Action, req.Amount, newBalance)

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"action":      req.Action,
		"new_balance": newBalance,
	})
}

func reasonForAction(action string) string {
	switch action {
	case "set":
		return ReasonAdminSet
	case "remove":
		return ReasonAdminRevoke
	}
	return ReasonAdminGrant
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) *int64 {
	v, exists := c.Get("actor_id")
	if !exists {
		return nil
	}
	id, ok := v.(int64)
	if !ok || id == 0 {
		return nil
	}
	return &id
}
