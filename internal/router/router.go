// Package router wires HTTP routes to their handlers
package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"bridge-backend/internal/config"
	"bridge-backend/internal/handlers"
	"bridge-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// corsMiddleware CORS middleware
// Priority: environment variable > YAML config > default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigins := []string{"*"}
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			allowedOrigins = allowedOrigins[:0]
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			// A wildcard response must not carry credentials; echo the caller's
			// origin instead when credentials are enabled
			if allowCredentials && origin != "" {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				c.Header("Access-Control-Allow-Origin", "*")
				allowCredentials = false
			}
		} else if origin != "" {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers the handler set mounted by SetupRouter
type Handlers struct {
	Order     *handlers.OrderHandler
	Escrow    *handlers.EscrowHandler
	Treasury  *handlers.TreasuryHandler
	Audit     *handlers.AuditHandler
	WebSocket *handlers.WebSocketHandler
	AdminAuth *handlers.AdminAuthHandler
}

// SetupRouter builds the gin engine with all routes mounted
func SetupRouter(db *gorm.DB, h *Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	auth := middleware.NewAuthMiddleware(logger)
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	// ============ Health & Metrics ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", handlers.HealthCheckHandler)
	r.GET("/api/health", handlers.HealthCheckHandler)
	r.GET("/api/health/db", handlers.DatabaseHealthCheckHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket status stream ============
	r.GET("/api/ws", h.WebSocket.HandleWebSocket)

	// ============ Admin login ============
	r.POST("/api/admin/login", h.AdminAuth.AdminLoginHandler)

	// ============ Bridge orders ============
	orders := r.Group("/api/orders")
	orders.Use(auth.RequireAuth())
	{
		orders.POST("", h.Order.CreateOrderHandler)
		orders.GET("", h.Order.ListOrdersHandler)
		orders.GET("/:id", h.Order.GetOrderHandler)
		orders.POST("/:id/lock", h.Order.LockFundsHandler)
		orders.POST("/:id/proof", h.Order.SubmitProofHandler)
		orders.POST("/:id/mint", h.Order.CompleteMintHandler)
	}

	// ============ Escrows ============
	escrows := r.Group("/api/escrows")
	escrows.Use(auth.RequireAuth())
	{
		escrows.POST("", h.Escrow.CreateEscrowHandler)
		escrows.GET("", h.Escrow.ListEscrowsHandler)
		escrows.GET("/:id", h.Escrow.GetEscrowHandler)
		escrows.POST("/:id/fund", h.Escrow.FundEscrowHandler)
		escrows.POST("/:id/release", h.Escrow.ReleaseEscrowHandler)
		escrows.POST("/:id/cancel", h.Escrow.CancelEscrowHandler)
		escrows.POST("/:id/dispute", h.Escrow.DisputeEscrowHandler)
	}

	// ============ Treasuries ============
	treasuries := r.Group("/api/treasuries")
	treasuries.Use(auth.RequireAuth())
	{
		treasuries.POST("", h.Treasury.CreateTreasuryHandler)
		treasuries.GET("", h.Treasury.ListTreasuriesHandler)
		treasuries.GET("/:id", h.Treasury.GetTreasuryHandler)
		treasuries.POST("/:id/allocate", h.Treasury.ExecuteAllocationHandler)
		treasuries.GET("/:id/balances", h.Treasury.GetBalanceSummaryHandler)
	}

	// ============ Admin (dispute resolution, audit trail) ============
	admin := r.Group("/api/admin")
	admin.Use(adminAuth.RequireAdminAuth())
	{
		admin.POST("/orders/:id/resolve", h.Order.ResolveDisputeHandler)
		admin.POST("/escrows/:id/resolve", h.Escrow.ResolveEscrowDisputeHandler)
		admin.GET("/audit", h.Audit.ListAuditEntriesHandler)
		admin.GET("/audit/:transaction_id", h.Audit.GetTransactionAuditHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Route not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
