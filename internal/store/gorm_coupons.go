package store

import (
	"context" // Request scoped cancellation
	"time"    // Timestamps

	"coupon_tracker/internal/domain" // Domain models

	"github.com/google/uuid" // Record identifiers
	"gorm.io/gorm"           // GORM ORM library
)

// GormCouponStore keeps coupons in a SQL database through GORM
type GormCouponStore struct {
	db *gorm.DB // Database handle
}

// NewGormCouponStore creates a coupon store on top of an open database
func NewGormCouponStore(db *gorm.DB) *GormCouponStore {
	return &GormCouponStore{db: db}
}

// Create inserts a new coupon
func (s *GormCouponStore) Create(ctx context.Context, c *domain.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New() // Assign identifier before insert
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return translate(err)
	}
	return nil
}

// List returns the owner's coupons ordered by scan time, newest first
func (s *GormCouponStore) List(ctx context.Context, ownerID uuid.UUID, used *bool) ([]domain.Coupon, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", ownerID) // Owner scope
	if used != nil {
		query = query.Where("is_used = ?", *used) // Optional used filter
	}
	coupons := []domain.Coupon{}
	if err := query.Order("scanned_at desc").Find(&coupons).Error; err != nil {
		return nil, translate(err)
	}
	return coupons, nil
}

// Get returns one of the owner's coupons
func (s *GormCouponStore) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Coupon, error) {
	return s.get(s.db.WithContext(ctx), ownerID, id)
}

func (s *GormCouponStore) get(tx *gorm.DB, ownerID, id uuid.UUID) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// MarkUsed flags one of the owner's coupons as used
func (s *GormCouponStore) MarkUsed(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (*domain.Coupon, bool, error) {
	var out *domain.Coupon
	changed := false // Set when this call flipped the flag
	// Read and update atomically
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.get(tx, ownerID, id)
		if err != nil {
			return err // Return error to rollback
		}
		if !c.IsUsed {
			// Both columns change together to keep used_at in step with is_used
			if err := tx.Model(c).Updates(map[string]any{"is_used": true, "used_at": at}).Error; err != nil {
				return translate(err)
			}
			c.IsUsed = true
			c.UsedAt = &at
			changed = true
		}
		out = c
		return nil // Commit transaction
	})
	if err != nil {
		return nil, false, err
	}
	return out, changed, nil
}

// Delete removes one of the owner's coupons
func (s *GormCouponStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&domain.Coupon{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
