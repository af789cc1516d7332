// Package store persists users and coupons. Every coupon query is scoped by
// owner, so a coupon that belongs to someone else looks exactly like one that
// does not exist.
package store

import (
	"context" // Request scoped cancellation
	"errors"  // Sentinel errors
	"time"    // Timestamps

	"coupon_tracker/internal/domain" // Domain models

	"github.com/google/uuid" // Record identifiers
)

var (
	// ErrNotFound is returned when no record matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("record already exists")
)

// UserStore is the credential store
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CouponStore is the owner scoped coupon store
type CouponStore interface {
	Create(ctx context.Context, c *domain.Coupon) error
	// List returns the owner's coupons, newest scan first. A nil used
	// filter returns both used and unused coupons.
	List(ctx context.Context, ownerID uuid.UUID, used *bool) ([]domain.Coupon, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Coupon, error)
	// MarkUsed flags the coupon as used at the given time and reports whether
	// it changed. Coupons that are already used keep their original used_at.
	MarkUsed(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (*domain.Coupon, bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
