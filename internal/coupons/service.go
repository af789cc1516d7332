// Package coupons implements the scanned coupon workflow on top of the owner
// scoped coupon store, with a Redis cache in front of listings.
package coupons

import (
	"context" // Request scoped cancellation
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"math"    // Value rounding
	"strconv" // Cache key versions
	"strings" // Input normalization
	"time"    // Timestamps

	"coupon_tracker/internal/domain" // Domain models
	"coupon_tracker/internal/events" // Domain events
	"coupon_tracker/internal/store"  // Coupon store
	"coupon_tracker/internal/utils"  // Cache helpers

	"github.com/google/uuid"     // Coupon identifiers
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

var (
	// ErrInvalidCoupon is returned for malformed coupon input
	ErrInvalidCoupon = errors.New("invalid coupon")
	// ErrNotFound is returned for missing coupons and coupons owned by someone else
	ErrNotFound = errors.New("coupon not found")
)

const (
	maxBarcodeLen = 255         // Column size
	maxValue      = 99999999.99 // decimal(10,2)
)

// CreateInput is a freshly scanned coupon
type CreateInput struct {
	Barcode  string   // Scanned barcode
	Value    *float64 // Optional value
	Currency string   // ISO 4217 code, EUR when empty
}

// Service manages the coupons of authenticated owners
type Service struct {
	store  store.CouponStore // Owner scoped store
	cache  *utils.Cache      // Listing cache
	events events.Publisher  // Domain events
	now    func() time.Time  // Clock
}

// NewService creates a coupon service; cache and publisher may be nil
func NewService(cs store.CouponStore, cache *utils.Cache, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{store: cs, cache: cache, events: pub, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and stores a scanned coupon for the owner
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*domain.Coupon, error) {
	c, err := normalize(in)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.New()
	c.UserID = ownerID
	c.ScannedAt = s.now()
	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	s.invalidate(ctx, ownerID)
	logrus.WithFields(logrus.Fields{
		"user_id":   ownerID,   // Owner
		"coupon_id": c.ID,      // Coupon
		"barcode":   c.Barcode, // Scanned code
	}).Info("Coupon scanned")
	events.Emit(ctx, s.events, events.New(events.CouponCreated, ownerID.String(), map[string]any{
		"coupon_id": c.ID.String(),
		"value":     c.Value,
		"currency":  c.Currency,
	}))
	return c, nil
}

// List returns the owner's coupons, newest scan first, optionally filtered by used state
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, used *bool) ([]domain.Coupon, error) {
	// The version is read before the store so a listing racing a mutation
	// lands under a key the mutation has already retired
	ver, err := s.cache.Version(ctx, versionKey(ownerID))
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": ownerID, "error": err.Error()}).Warn("Coupon cache read failed")
		return s.listFromStore(ctx, ownerID, used)
	}
	key := listKey(ownerID, ver, usedPart(used)) // Cache key for this filter
	var cached []domain.Coupon
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Coupon cache read failed")
	}
	if err == nil && found {
		return cached, nil
	}
	coupons, err := s.listFromStore(ctx, ownerID, used)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, coupons); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Coupon cache write failed")
	}
	return coupons, nil
}

func (s *Service) listFromStore(ctx context.Context, ownerID uuid.UUID, used *bool) ([]domain.Coupon, error) {
	coupons, err := s.store.List(ctx, ownerID, used)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Get returns one of the owner's coupons
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Coupon, error) {
	c, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, mapStoreErr(err, "get coupon")
	}
	return c, nil
}

// MarkUsed flags one of the owner's coupons as redeemed
func (s *Service) MarkUsed(ctx context.Context, ownerID, id uuid.UUID) (*domain.Coupon, error) {
	c, changed, err := s.store.MarkUsed(ctx, ownerID, id, s.now())
	if err != nil {
		return nil, mapStoreErr(err, "mark coupon used")
	}
	if !changed {
		return c, nil // Already used
	}
	s.invalidate(ctx, ownerID)
	logrus.WithFields(logrus.Fields{
		"user_id":   ownerID, // Owner
		"coupon_id": id,      // Coupon
	}).Info("Coupon marked used")
	events.Emit(ctx, s.events, events.New(events.CouponUsed, ownerID.String(), map[string]any{"coupon_id": id.String()}))
	return c, nil
}

// Delete removes one of the owner's coupons
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return mapStoreErr(err, "delete coupon")
	}
	s.invalidate(ctx, ownerID)
	logrus.WithFields(logrus.Fields{
		"user_id":   ownerID, // Owner
		"coupon_id": id,      // Coupon
	}).Info("Coupon deleted")
	events.Emit(ctx, s.events, events.New(events.CouponDeleted, ownerID.String(), map[string]any{"coupon_id": id.String()}))
	return nil
}

// invalidate retires every cached listing of the owner by bumping its version
func (s *Service) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if err := s.cache.Bump(ctx, versionKey(ownerID)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": ownerID, "error": err.Error()}).Warn("Coupon cache invalidation failed")
	}
}

func versionKey(ownerID uuid.UUID) string {
	return "coupons:user:" + ownerID.String() + ":version"
}

func listKey(ownerID uuid.UUID, ver int64, used string) string {
	return "coupons:user:" + ownerID.String() + ":v" + strconv.FormatInt(ver, 10) + ":used:" + used
}

func usedPart(used *bool) string {
	switch {
	case used == nil:
		return "all"
	case *used:
		return "true"
	}
	return "false"
}

func mapStoreErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// normalize validates input and builds the coupon to store
func normalize(in CreateInput) (*domain.Coupon, error) {
	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" || len(barcode) > maxBarcodeLen {
		return nil, fmt.Errorf("%w: barcode must be 1-%d characters", ErrInvalidCoupon, maxBarcodeLen)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	if !isCurrencyCode(currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidCoupon)
	}
	var value *float64
	if in.Value != nil {
		v := *in.Value
		if math.IsNaN(v) || v < 0 || v > maxValue {
			return nil, fmt.Errorf("%w: value must be between 0 and %.2f", ErrInvalidCoupon, maxValue)
		}
		v = math.Round(v*100) / 100 // Two decimal places like the column
		value = &v
	}
	return &domain.Coupon{Barcode: barcode, Value: value, Currency: currency}, nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
