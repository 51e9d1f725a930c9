package content

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tokenbot/internal/balance"
	"tokenbot/internal/db"
	"tokenbot/internal/logger"
	"tokenbot/internal/metrics"
	"tokenbot/internal/notify"
	"tokenbot/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	repo     Repository
	balances balance.Store
	notifier notify.Notifier
	limiter  *ratelimit.Limiter
}

func NewHandler(database *sqlx.DB, balances balance.Store, notifier notify.Notifier, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		repo:     NewRepository(database),
		balances: balances,
		notifier: notifier,
		limiter:  limiter,
	}
}

type CreateRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    *string `json:"description"`
	FileID         string  `json:"file_id" binding:"required"`
	FileType       string  `json:"file_type" binding:"required"`
	TokensRequired int64   `json:"tokens_required"`
}

type UnlockRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

type UnlockResponse struct {
	Content    *Content `json:"content"`
	NewBalance int64    `json:"new_balance"`
}

// Create godoc
// @Summary      Publish content
// @Description  Registers a protected item and mints its share deeplink.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Content"
// @Success      201      {object}  Content
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /admin/content [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, file_id and file_type are required"})
		return
	}
	if req.TokensRequired < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokens_required must not be negative"})
		return
	}

	item := &Content{
		Title:          req.Title,
		Description:    req.Description,
		FileID:         req.FileID,
		FileType:       req.FileType,
		TokensRequired: req.TokensRequired,
		Deeplink:       newDeeplink(),
		CreatedBy:      actorID(c),
	}

	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create content"})
		return
	}

	logger.Infof("Content %d published: %q unlocks for %d tokens (deeplink %s)",
		item.ID, item.Title, item.TokensRequired, item.Deeplink)

	c.JSON(http.StatusCreated, item)
}

// List godoc
// @Summary      List content
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   Content
// @Failure      500     {object}  gin.H
// @Router       /admin/content [get]
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load content"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// Unlock godoc
// @Summary      Unlock content
// @Description  Debits the unlock price from the user's balance and returns the item. Free items skip the debit.
// @Tags         content
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        deeplink  path      string         true  "Content deeplink"
// @Param        request   body      UnlockRequest  true  "Unlocking user"
// @Success      200       {object}  UnlockResponse
// @Failure      400       {object}  gin.H
// @Failure      404       {object}  gin.H
// @Failure      409       {object}  gin.H
// @Failure      429       {object}  gin.H
// @Router       /content/{deeplink}/unlock [post]
func (h *Handler) Unlock(c *gin.Context) {
	deeplink := c.Param("deeplink")
	if deeplink == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deeplink"})
		return
	}

	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if !h.limiter.Allow(req.UserID, ratelimit.ClassUnlock, time.Now()) {
		metrics.RecordRateLimited(ratelimit.ClassUnlock)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many unlock requests, slow down"})
		return
	}

	ctx := c.Request.Context()

	item, err := h.repo.FindByDeeplink(ctx, deeplink)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load content"})
		return
	}
	if !item.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	newBalance := int64(0)
	if item.TokensRequired > 0 {
		newBalance, err = h.balances.Adjust(ctx, req.UserID, -item.TokensRequired,
			balance.ReasonContentUnlock, balance.ActorUser, &req.UserID, nil)
	} else {
		newBalance, err = h.balances.Get(ctx, req.UserID)
	}
	if err != nil {
		switch {
		case errors.Is(err, balance.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, balance.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "not enough tokens to unlock this content"})
		case errors.Is(err, db.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unlock content"})
		}
		return
	}

	// A lost view bump only skews stats, so it must not undo the debit.
	if err := h.repo.IncrementViews(ctx, item.ID); err != nil {
		logger.Errorf("Failed to bump views for content %d: %v", item.ID, err)
	} else {
		item.Views++
	}

	if item.TokensRequired > 0 {
		metrics.RecordTokens(-item.TokensRequired, balance.ReasonContentUnlock)
		h.notifier.ContentUnlocked(ctx, req.UserID, newBalance, item.Title)
	}

	logger.Infof("User %d unlocked content %d for %d tokens", req.UserID, item.ID, item.TokensRequired)

	c.JSON(http.StatusOK, UnlockResponse{Content: item, NewBalance: newBalance})
}

func newDeeplink() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
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
