package api

import (
	"net/http" // HTTP status codes
	"time"     // Token expiry

	"coupon_tracker/internal/auth"       // Auth workflow
	"coupon_tracker/internal/domain"     // Domain models
	"coupon_tracker/internal/middleware" // Authenticated caller

	"github.com/gin-gonic/gin" // Gin web framework
)

// SignupRequest is the signup body
type SignupRequest struct {
	Email    string  `json:"email" binding:"required,email"`     // Email must be valid
	Password string  `json:"password" binding:"required,max=72"` // bcrypt limit
	Name     *string `json:"name" binding:"omitempty,max=255"`   // Optional display name
}

// SigninRequest is the signin body
type SigninRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// OTPVerifyRequest is the verify-otp body
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required"` // Email must be provided
	OTP   string `json:"otp" binding:"required"`   // Code from the email
}

// EmailRequest is the body of resend-otp and request-password-reset
type EmailRequest struct {
	Email string `json:"email" binding:"required"` // Email must be provided
}

// PasswordResetRequest is the reset-password body
type PasswordResetRequest struct {
	Email       string `json:"email" binding:"required"`               // Email must be provided
	OTP         string `json:"otp" binding:"required"`                 // Code from the email
	NewPassword string `json:"new_password" binding:"required,max=72"` // bcrypt limit
}

// SigninResponse carries the session token
type SigninResponse struct {
	AccessToken string          `json:"access_token"` // JWT token
	TokenType   string          `json:"token_type"`   // Always bearer
	ExpiresAt   time.Time       `json:"expires_at"`   // Token expiry
	User        domain.UserView `json:"user"`         // Sanitized user
}

// SignupHandler registers a user and mails the verification code
func SignupHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		if _, err := svc.Signup(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Signup successful. Please verify your email with the OTP sent."})
	}
}

// SigninHandler authenticates a user and returns a JWT token
func SigninHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SigninRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		session, err := svc.Signin(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, SigninResponse{
			AccessToken: session.AccessToken,
			TokenType:   "bearer",
			ExpiresAt:   session.ExpiresAt,
			User:        session.User,
		})
	}
}

// VerifyOTPHandler confirms the signup code
func VerifyOTPHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPVerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		already, err := svc.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
		if err != nil {
			respondError(c, err)
			return
		}
		if already {
			c.JSON(http.StatusOK, gin.H{"message": "Email already verified."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully. You may now sign in."})
	}
}

// ResendOTPHandler mails a fresh signup code
func ResendOTPHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		already, err := svc.ResendOTP(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		if already {
			c.JSON(http.StatusOK, gin.H{"message": "Email already verified."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "OTP resent successfully. Please check your email."})
	}
}

// RequestPasswordResetHandler mails a password reset code
func RequestPasswordResetHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset OTP sent. Please check your email."})
	}
}

// ResetPasswordHandler sets a new password after checking the reset code
func ResetPasswordHandler(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PasswordResetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := svc.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful. You may now sign in."})
	}
}

// MeHandler returns the authenticated user
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, errUnauthenticated)
			return
		}
		c.JSON(http.StatusOK, user.View())
	}
}
