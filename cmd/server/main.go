package main

import (
	"context"   // Shutdown deadline
	"errors"    // Error matching
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"coupon_tracker/internal/api"     // Custom package for API handlers
	"coupon_tracker/internal/auth"    // Auth workflow
	"coupon_tracker/internal/config"  // Custom package for configuration
	"coupon_tracker/internal/coupons" // Coupon workflow
	"coupon_tracker/internal/db"      // Database connection and migration
	"coupon_tracker/internal/events"  // Domain events
	"coupon_tracker/internal/mailer"  // Email delivery
	"coupon_tracker/internal/store"   // Persistence
	"coupon_tracker/internal/utils"   // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	users, couponStore := openStores(cfg)

	// Setup Redis client, optional
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logrus.Warn("REDIS_ADDR not set, cache and rate limiting disabled")
	}

	m, err := mailer.New(cfg)
	if err != nil {
		logrus.Fatalf("failed to set up mailer: %v", err)
	}

	// Event publisher, optional
	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL, events.DefaultExchange)
		if err != nil {
			logrus.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer amqpPub.Close()
		pub = amqpPub
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		logrus.Fatalf("failed to set up token issuer: %v", err)
	}
	authSvc := auth.NewService(users, auth.NewOTPManager(cfg.OTPLength, cfg.OTPTTL), tokens, m, pub, cfg.BcryptCost)
	couponSvc := coupons.NewService(couponStore, utils.NewCache(redisClient, cfg.CacheTTL), pub)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r, err := api.NewRouter(api.Deps{Config: cfg, Auth: authSvc, Coupons: couponSvc, Redis: redisClient})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	// Wait for SIGINT or SIGTERM, then drain in-flight requests
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}

// setupLogger configures logrus for the environment
func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openStores connects the configured persistence backend
func openStores(cfg *config.Config) (store.UserStore, store.CouponStore) {
	if cfg.DBDriver == config.DriverMemory {
		logrus.Warn("Using in-memory stores, data is lost on restart")
		u, c := store.NewMemory()
		return u, c
	}
	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}
	return store.NewGormUserStore(conn), store.NewGormCouponStore(conn)
}
