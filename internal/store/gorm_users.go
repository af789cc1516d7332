package store

import (
	"context" // Request scoped cancellation
	"errors"  // Error matching

	"coupon_tracker/internal/domain" // Domain models

	"github.com/google/uuid" // Record identifiers
	"gorm.io/gorm"           // GORM ORM library
	"gorm.io/gorm/clause"    // Association clauses
)

// GormUserStore keeps users in a SQL database through GORM
type GormUserStore struct {
	db *gorm.DB // Database handle
}

// NewGormUserStore creates a user store on top of an open database
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// Create inserts a new user
func (s *GormUserStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New() // Assign identifier before insert
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

// GetByEmail finds a user by (normalized) email
func (s *GormUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetByID finds a user by primary key
func (s *GormUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Save writes every column of an existing user, NULLs included
func (s *GormUserStore) Save(ctx context.Context, u *domain.User) error {
	// MySQL reports zero affected rows for unchanged values, so RowsAffected is not checked here
	err := s.db.WithContext(ctx).Model(u).Select("*").Omit("id", "created_at", clause.Associations).Updates(u).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

// Delete removes a user and, through the foreign key, its coupons
func (s *GormUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// translate maps GORM errors onto the store sentinels
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}
