package handler

import (
	"net/http"

	"marketplace-settlement/internal/adapter/http/middleware"
	"marketplace-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	PinSvc         ports.PinService
	WithdrawalSvc  ports.WithdrawalService
	SettlementSvc  ports.SettlementService
	SigSvc         ports.SignatureService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (signature-verified, no token) ---
	webhookHandler := NewWebhookHandler(deps.SettlementSvc, deps.SigSvc, deps.Logger)
	v1.POST("/webhooks/paystack", webhookHandler.HandlePaystack)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc, deps.PinSvc)
	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	settlementHandler := NewSettlementHandler(deps.SettlementSvc)

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/balance", walletHandler.GetBalance)
		wallets.GET("/statement", walletHandler.GetStatement)
	}

	v1.PUT("/pins", jwtAuth, walletHandler.SetPin)

	withdrawals := v1.Group("/withdrawals", jwtAuth)
	{
		withdrawals.POST("", withdrawalHandler.Create)
		withdrawals.POST("/validate", withdrawalHandler.Validate)
		withdrawals.GET("", withdrawalHandler.List)
		withdrawals.GET("/:id", withdrawalHandler.Get)
		withdrawals.POST("/:id/cancel", withdrawalHandler.Cancel)

		admin := withdrawals.Group("", middleware.RequireAdmin())
		{
			admin.POST("/:id/approve", withdrawalHandler.Approve)
			admin.POST("/:id/reject", withdrawalHandler.Reject)
		}
	}

	plans := v1.Group("/plans", jwtAuth)
	{
		plans.POST("", settlementHandler.CreatePlan)
		plans.GET("/:id", settlementHandler.GetPlan)
	}

	return r
}

// HealthCheck returns a handler that pings each dependency and reports a
// combined status.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
