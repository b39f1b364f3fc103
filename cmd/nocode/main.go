package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/nocode/adapters/artifacts"
	"github.com/layer-3/nocode/adapters/chain"
	"github.com/layer-3/nocode/adapters/events"
	"github.com/layer-3/nocode/adapters/store"
	"github.com/layer-3/nocode/adapters/store/sqlite"
	"github.com/layer-3/nocode/adapters/tokenizer"
	"github.com/layer-3/nocode/internal/config"
	"github.com/layer-3/nocode/internal/logging"
	"github.com/layer-3/nocode/internal/metrics"
	"github.com/layer-3/nocode/ports"
	"github.com/layer-3/nocode/service"
	httpapi "github.com/layer-3/nocode/transport/http"
)

const buildVersion = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Service: "nocode",
		Version: buildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("nocode stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.JWTSecretGenerated {
		logger.Warn("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	// Database
	db, err := sqlite.NewStore(cfg.DatabaseFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()
	if err := db.ApplyMigrations(); err != nil {
		return err
	}
	logger.Info("database migrations applied", "file", cfg.DatabaseFile)

	// Nonces, revocation and events
	var (
		nonces    ports.NonceStore
		denylist  ports.Denylist
		publisher message.Publisher
		pruners   = map[string]service.Pruner{}
	)

	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		nonces = store.NewRedisNonceStore(redisClient)
		denylist = store.NewRedisDenylist(redisClient)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return err
		}
		logger.Info("using redis for nonces, revocation and events")
	} else {
		memNonces := store.NewMemoryNonceStore()
		memDenylist := store.NewMemoryDenylist()
		nonces, denylist = memNonces, memDenylist
		pruners["nonces"] = memNonces
		pruners["denylist"] = memDenylist

		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Info("using in-process nonces, revocation and events")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing event publisher", "error", err)
		}
	}()

	tok, err := tokenizer.NewJWTTokenizer(cfg.JWTSecret)
	if err != nil {
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// Chain access
	networks := chain.NewNetworks(chain.DefaultNetworks(cfg.AnvilRPC, cfg.InfuraKey))
	defer networks.Close()
	if !networks.Supports(cfg.DefaultNetwork) {
		logger.Warn("default network is not configured", "network", cfg.DefaultNetwork, "available", networks.Names())
	}

	authOpts := []service.AuthOption{
		service.WithEventPublisher(events.NewWatermillPublisher(publisher)),
		service.WithMetrics(collector),
	}
	if cfg.RevokeOnLogout {
		authOpts = append(authOpts, service.WithDenylist(denylist))
	}

	authService := service.NewAuthService(
		service.AuthConfig{
			Domain:     cfg.AppDomain,
			NonceTTL:   cfg.NonceTTL,
			SessionTTL: cfg.SessionTTL,
		},
		nonces,
		db,
		tok,
		authOpts...,
	)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := httpapi.SetupRouter(httpapi.RouterConfig{
		Auth:           authService,
		Deployments:    service.NewDeploymentService(db),
		Dashboard:      service.NewDashboardService(db, db, chain.NewEthReader(networks)),
		Catalog:        service.NewCatalogService(db, artifacts.NewFSSource(os.DirFS(cfg.ArtifactsDir))),
		DefaultNetwork: cfg.DefaultNetwork,
		Cookie:         httpapi.CookieConfig{Secure: cfg.CookieSecure},
		AllowedOrigin:  cfg.CORSAllowedOrigin,
		AuthRateLimit: httpapi.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitAuthRequests,
			Window:            cfg.RateLimitAuthWindow,
		},
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		Health:         db,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	housekeeping := service.NewHousekeepingService(pruners, logger, cfg.HousekeepingInterval)
	housekeeping.Start()
	defer housekeeping.Stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}

	logger.Info("nocode starting", "addr", cfg.Addr(), "domain", cfg.AppDomain, "version", buildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful server shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("error closing server", "error", err)
			}
		}
	}

	logger.Info("nocode stopped")
	return nil
}
