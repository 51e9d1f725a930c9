package server

import (
	"context"
	"net/http"
	"time"

	"tokenbot/internal/auth"
	"tokenbot/internal/balance"
	"tokenbot/internal/config"
	"tokenbot/internal/content"
	"tokenbot/internal/notify"
	"tokenbot/internal/payment"
	"tokenbot/internal/ratelimit"
	"tokenbot/internal/referral"
	"tokenbot/internal/user"
	"tokenbot/internal/verification"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
}

func New(db *sqlx.DB, cfg *config.Config, notifier notify.Notifier) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	limiter := ratelimit.New(cfg.RateLimitWindow)

	userRepo := user.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	referralRepo := referral.NewRepository(db)
	balanceStore := balance.NewStore(db)

	userHandler := user.NewHandler(db)
	balanceHandler := balance.NewHandler(db, notifier)
	paymentHandler := payment.NewHandler(db, cfg, limiter)
	referralHandler := referral.NewHandler(db)
	contentHandler := content.NewHandler(db, balanceStore, notifier, limiter)

	engine := verification.NewEngine(db, paymentRepo, userRepo, balanceStore, referralRepo, notifier, cfg.ReferralBonus)
	verificationHandler := verification.NewHandler(engine)

	statsHandler := NewStatsHandler(userRepo, paymentRepo, referralRepo)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(1, 5))
	{
		public.POST("/token", IssueToken(cfg))
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/users", userHandler.Register)
		protected.GET("/users/:userID", userHandler.GetUser)
		protected.GET("/users/:userID/balance", balanceHandler.GetBalance)
		protected.GET("/users/:userID/mutations", balanceHandler.ListMutations)
		protected.GET("/users/:userID/payments", paymentHandler.ListByUser)
		protected.GET("/users/:userID/referrals", referralHandler.GetStats)
		protected.POST("/purchases", paymentHandler.RequestPurchase)
		protected.GET("/payments/:paymentID", paymentHandler.GetPayment)
		protected.GET("/packages", paymentHandler.ListPackages)
		protected.POST("/content/:deeplink/unlock", contentHandler.Unlock)
	}

	adminMiddleware := auth.RequireRole(auth.RoleAdmin)
	admin := router.Group("/admin")
	admin.Use(authMiddleware, adminMiddleware)
	{
		admin.GET("/payments/pending", paymentHandler.ListPending)
		admin.POST("/payments/:paymentID/approve", verificationHandler.Approve)
		admin.POST("/payments/:paymentID/reject", verificationHandler.Reject)
		admin.POST("/users/:userID/tokens", balanceHandler.AdminAdjust)
		admin.POST("/content", contentHandler.Create)
		admin.GET("/content", contentHandler.List)
		admin.GET("/stats", statsHandler.GetStats)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		db:     db,
		config: cfg,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
