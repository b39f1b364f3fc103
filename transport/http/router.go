package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/nocode/service"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig collects everything the router needs
type RouterConfig struct {
	Auth           *service.AuthService
	Deployments    *service.DeploymentService
	Dashboard      *service.DashboardService
	Catalog        *service.CatalogService
	DefaultNetwork string
	Cookie         CookieConfig
	AllowedOrigin  string
	AuthRateLimit  RateLimitConfig
	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	Health         Pinger
	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty trusts no proxy.
	TrustedProxies []string
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), RequestLogger())
	if cfg.Metrics != nil {
		router.Use(Metrics(cfg.Metrics))
	}
	router.Use(CORS(cfg.AllowedOrigin))

	// Create handlers
	authHandlers := NewAuthHandlers(cfg.Auth, cfg.Cookie)
	deployHandlers := NewDeployHandlers(cfg.Deployments, cfg.Dashboard, cfg.DefaultNetwork)
	catalogHandlers := NewCatalogHandlers(cfg.Catalog)

	// Auth routes
	auth := router.Group("/auth")
	{
		siwe := auth.Group("/siwe", RateLimit(cfg.AuthRateLimit))
		siwe.GET("/nonce", authHandlers.Nonce)
		siwe.POST("/verify", authHandlers.Verify)

		auth.POST("/logout", authHandlers.Logout)
		auth.GET("/me", SessionMiddleware(cfg.Auth), authHandlers.Me)
	}

	deploy := router.Group("/deploy")
	{
		deploy.POST("/record_erc20", deployHandlers.RecordERC20)
		deploy.GET("/byUser/:address", deployHandlers.DeploymentsByUser)
		deploy.GET("/contract/:address", deployHandlers.Contract)
		deploy.POST("/prepare_erc20", catalogHandlers.PrepareERC20)
		deploy.GET("/artifacts/:name", catalogHandlers.Artifact)
	}

	router.GET("/templates", catalogHandlers.Templates)

	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/user/:id", deployHandlers.UserDashboard)
		dashboard.GET("/byUser/:address", deployHandlers.WalletDashboard)
		dashboard.GET("/contract/transactions", deployHandlers.ContractTransactions)
	}

	router.GET("/healthz", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	return router, nil
}
