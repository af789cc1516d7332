package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"coupon_tracker/internal/auth"    // Auth workflow errors
	"coupon_tracker/internal/coupons" // Coupon errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// errUnauthenticated answers handlers reached without an authenticated user
var errUnauthenticated = auth.ErrUnauthenticated

// classify maps service errors to a status code and a client safe message
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, coupons.ErrInvalidCoupon):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrConflict):
		return http.StatusBadRequest, "Email already registered."
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, coupons.ErrNotFound):
		return http.StatusNotFound, "Coupon not found"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect email or password"
	case errors.Is(err, auth.ErrUnverified):
		return http.StatusUnauthorized, "Email not verified. Please verify your email first."
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, auth.ErrOTPNotFound):
		return http.StatusBadRequest, "No OTP found. Please request a new code."
	case errors.Is(err, auth.ErrOTPExpired):
		return http.StatusBadRequest, "OTP expired. Please request a new code."
	case errors.Is(err, auth.ErrOTPMismatch):
		return http.StatusBadRequest, "Invalid OTP."
	case errors.Is(err, auth.ErrDeliveryFailed):
		return http.StatusInternalServerError, "Failed to send email. Please try again later."
	}
	return http.StatusInternalServerError, "Internal server error"
}

// respondError writes the error response and logs unexpected failures
func respondError(c *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Full error, never sent to the client
		}).Error("Request failed")
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest answers malformed JSON bodies and query strings
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
