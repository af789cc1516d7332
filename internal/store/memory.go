package store

import (
	"context" // Request scoped cancellation
	"sort"    // Listing order
	"sync"    // Guards the maps
	"time"    // Timestamps

	"coupon_tracker/internal/domain" // Domain models

	"github.com/google/uuid" // Record identifiers
)

// memoryDB is the state shared by the in-memory user and coupon stores
type memoryDB struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]domain.User
	coupons map[uuid.UUID]domain.Coupon
}

// MemoryUserStore keeps users in process memory
type MemoryUserStore struct {
	db *memoryDB
}

// MemoryCouponStore keeps coupons in process memory
type MemoryCouponStore struct {
	db *memoryDB
}

// NewMemory returns a user and coupon store sharing one in-memory database.
// Deleting a user through the user store also deletes its coupons.
func NewMemory() (*MemoryUserStore, *MemoryCouponStore) {
	db := &memoryDB{
		users:   make(map[uuid.UUID]domain.User),
		coupons: make(map[uuid.UUID]domain.Coupon),
	}
	return &MemoryUserStore{db: db}, &MemoryCouponStore{db: db}
}

func (s *MemoryUserStore) Create(_ context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.db.users[u.ID] = *u
	return nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) Save(_ context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing, ok := s.db.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	updated := *u
	updated.CreatedAt = existing.CreatedAt
	s.db.users[u.ID] = updated
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.db.users, id)
	for cid, c := range s.db.coupons {
		if c.UserID == id {
			delete(s.db.coupons, cid)
		}
	}
	return nil
}

func (s *MemoryCouponStore) Create(_ context.Context, c *domain.Coupon) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[c.UserID]; !ok {
		return ErrNotFound // Foreign key
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.db.coupons[c.ID] = *c
	return nil
}

func (s *MemoryCouponStore) List(_ context.Context, ownerID uuid.UUID, used *bool) ([]domain.Coupon, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []domain.Coupon{}
	for _, c := range s.db.coupons {
		if c.UserID != ownerID {
			continue
		}
		if used != nil && c.IsUsed != *used {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScannedAt.After(out[j].ScannedAt)
	})
	return out, nil
}

func (s *MemoryCouponStore) Get(_ context.Context, ownerID, id uuid.UUID) (*domain.Coupon, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	c, ok := s.db.coupons[id]
	if !ok || c.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryCouponStore) MarkUsed(_ context.Context, ownerID, id uuid.UUID, at time.Time) (*domain.Coupon, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.coupons[id]
	if !ok || c.UserID != ownerID {
		return nil, false, ErrNotFound
	}
	if c.IsUsed {
		return &c, false, nil
	}
	c.IsUsed = true
	c.UsedAt = &at
	s.db.coupons[id] = c
	return &c, true, nil
}

func (s *MemoryCouponStore) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.coupons[id]
	if !ok || c.UserID != ownerID {
		return ErrNotFound
	}
	delete(s.db.coupons, id)
	return nil
}
