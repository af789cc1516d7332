package api

import (
	"fmt"  // Error wrapping
	"time" // CORS preflight cache

	"coupon_tracker/internal/auth"       // Auth workflow
	"coupon_tracker/internal/config"     // Application configuration
	"coupon_tracker/internal/coupons"    // Coupon workflow
	"coupon_tracker/internal/middleware" // Custom middlewares

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	Config  *config.Config   // Application configuration
	Auth    *auth.Service    // Auth workflow
	Coupons *coupons.Service // Coupon workflow
	Redis   *redis.Client    // Redis client, nil disables rate limiting
}

// NewRouter builds the gin engine with every route of the API
func NewRouter(d Deps) (*gin.Engine, error) {
	corsCfg := corsConfig(d.Config.CORSOrigins)
	// cors.New panics on a bad config, so check it first
	if err := corsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}
	r := gin.New() // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger(), cors.New(corsCfg))

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	api := r.Group("/api")
	api.GET("/health", HealthHandler()) // Liveness endpoint

	// Auth routes, rate limited per client IP
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(d.Config.RateLimit, d.Redis))
	authGroup.POST("/signup", SignupHandler(d.Auth))                               // Registration endpoint
	authGroup.POST("/signin", SigninHandler(d.Auth))                               // Login endpoint
	authGroup.POST("/verify-otp", VerifyOTPHandler(d.Auth))                        // Email verification endpoint
	authGroup.POST("/resend-otp", ResendOTPHandler(d.Auth))                        // Resend verification code
	authGroup.POST("/request-password-reset", RequestPasswordResetHandler(d.Auth)) // Mail a reset code
	authGroup.POST("/reset-password", ResetPasswordHandler(d.Auth))                // Set a new password
	authGroup.GET("/me", middleware.JWTAuthMiddleware(d.Auth), MeHandler())        // Current user

	// Coupon routes; listing is open to anonymous callers, everything else needs a token
	couponGroup := api.Group("/coupons")
	list := ListCouponsHandler(d.Coupons)
	couponGroup.GET("", middleware.OptionalJWTMiddleware(d.Auth), list)
	couponGroup.GET("/", middleware.OptionalJWTMiddleware(d.Auth), list)

	protected := couponGroup.Group("", middleware.JWTAuthMiddleware(d.Auth))
	create := CreateCouponHandler(d.Coupons)
	protected.POST("", create)                                        // Scan a coupon
	protected.POST("/", create)                                       // Scan a coupon
	protected.GET("/:id", GetCouponHandler(d.Coupons))                // Coupon details
	protected.PUT("/:id/mark-used", MarkCouponUsedHandler(d.Coupons)) // Redeem a coupon
	protected.DELETE("/:id", DeleteCouponHandler(d.Coupons))          // Remove a coupon

	return r, nil
}

// corsConfig allows the configured browser origins; "*" allows any origin
// without credentials
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
