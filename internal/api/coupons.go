package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"coupon_tracker/internal/coupons"    // Coupon workflow
	"coupon_tracker/internal/domain"     // Domain models
	"coupon_tracker/internal/middleware" // Authenticated caller

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Coupon identifiers
)

// CreateCouponRequest is the body of a freshly scanned coupon
type CreateCouponRequest struct {
	Barcode  string   `json:"barcode" binding:"required"` // Scanned barcode
	Value    *float64 `json:"value"`                      // Optional value
	Currency string   `json:"currency"`                   // Defaults to EUR
}

// CreateCouponHandler stores a scanned coupon for the caller
func CreateCouponHandler(svc *coupons.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondError(c, errUnauthenticated)
			return
		}
		var req CreateCouponRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		coupon, err := svc.Create(c.Request.Context(), user.ID, coupons.CreateInput{
			Barcode:  req.Barcode,
			Value:    req.Value,
			Currency: req.Currency,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

// ListCouponsHandler lists the caller's coupons; anonymous callers get an empty list
func ListCouponsHandler(svc *coupons.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var used *bool // Optional used filter
		if raw := c.Query("used"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "used must be true or false"})
				return
			}
			used = &v
		}
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusOK, []domain.Coupon{})
			return
		}
		list, err := svc.List(c.Request.Context(), user.ID, used)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetCouponHandler returns one of the caller's coupons
func GetCouponHandler(svc *coupons.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, id, ok := couponTarget(c)
		if !ok {
			return
		}
		coupon, err := svc.Get(c.Request.Context(), user.ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

// MarkCouponUsedHandler flags one of the caller's coupons as redeemed
func MarkCouponUsedHandler(svc *coupons.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, id, ok := couponTarget(c)
		if !ok {
			return
		}
		coupon, err := svc.MarkUsed(c.Request.Context(), user.ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}

// DeleteCouponHandler removes one of the caller's coupons
func DeleteCouponHandler(svc *coupons.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, id, ok := couponTarget(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), user.ID, id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// couponTarget resolves the caller and the coupon id path parameter. A
// malformed id cannot name an existing coupon and is reported as not found.
func couponTarget(c *gin.Context) (*domain.User, uuid.UUID, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, coupons.ErrNotFound)
		return nil, uuid.Nil, false
	}
	return user, id, true
}
