package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rolodexhq/rolodex/internal/auth"
	"github.com/rolodexhq/rolodex/internal/avatar"
	"github.com/rolodexhq/rolodex/internal/cache"
	"github.com/rolodexhq/rolodex/internal/config"
	"github.com/rolodexhq/rolodex/internal/handlers"
	"github.com/rolodexhq/rolodex/internal/health"
	"github.com/rolodexhq/rolodex/internal/httpmiddleware"
	"github.com/rolodexhq/rolodex/internal/logging"
	"github.com/rolodexhq/rolodex/internal/mail"
	"github.com/rolodexhq/rolodex/internal/metrics"
	"github.com/rolodexhq/rolodex/internal/rate"
	"github.com/rolodexhq/rolodex/internal/security"
	"github.com/rolodexhq/rolodex/internal/storage"
	"github.com/rolodexhq/rolodex/internal/trace"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)
	shutdownTracer, err := trace.InitTracer(cfg.App.ServiceName, cfg.App.Env)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
	} else {
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	if cfg.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	ready := health.NewManager(true)

	pool, err := connectDB(cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		_ = redisClient.Close()
	}()

	limiter, err := buildLimiter(cfg, redisClient, logger)
	if err != nil {
		logger.Error("rate limiter init failed", "error", err)
		os.Exit(1)
	}

	uploader, err := avatar.NewS3Uploader(context.Background(), cfg.Avatar)
	if err != nil {
		logger.Error("avatar uploader init failed", "error", err)
		os.Exit(1)
	}

	store := storage.New(pool)
	sessions := cache.NewSessionCache(redisClient, cfg.SessionCacheTTL)
	tokens := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.EmailTokenTTL)
	mailer := mail.NewSendGridSender(cfg.Mail.APIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
	resolver := auth.NewResolver(tokens, sessions, store, logger)

	authHandler := handlers.NewAuthHandler(store, tokens, mailer, logger, cfg.Mail.BaseURL)
	contactsHandler := handlers.NewContactsHandler(store, logger, systemClock{})
	usersHandler := handlers.NewUsersHandler(store, uploader, sessions, logger)

	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(logger))
	router.Use(httpmiddleware.Recovery(logger))
	router.Use(trace.Middleware(cfg.App.ServiceName))
	router.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	router.Use(httpmiddleware.IPBan(cfg.BannedIPs))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(cfg.App.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	api := router.Group("/api")
	api.Use(rate.Middleware(limiter, logger))
	api.GET("/database_checker", health.DatabaseChecker(pool))

	authHandler.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(auth.Middleware(resolver))
	contactsHandler.RegisterRoutes(protected)
	usersHandler.RegisterRoutes(protected)

	addr := fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("rolodex starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(server, logger)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
		cfg.DB.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func buildLimiter(cfg *config.Config, client *redis.Client, logger *slog.Logger) (rate.Limiter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cfg.App.Env == "dev" || cfg.App.Env == "test" {
			logger.Warn("redis rate limiter unavailable, falling back to memory", "error", err)
			return rate.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window), nil
		}
		return nil, err
	}

	return rate.NewRedisLimiter(client, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Prefix), nil
}

func waitForShutdown(server *http.Server, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutdown started")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		return
	}
	logger.Info("shutdown complete")
}
