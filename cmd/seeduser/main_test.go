package main

import (
	"context"
	"testing"

	"coupon_tracker/internal/domain"
	"coupon_tracker/internal/store"
	"coupon_tracker/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed_CreatesVerifiedUser(t *testing.T) {
	users, _ := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, seed(ctx, users, " Demo@Example.com ", "pw", "Demo", bcrypt.MinCost))

	u, err := users.GetByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.False(t, u.HasPendingOTP())
	require.NotNil(t, u.Name)
	assert.Equal(t, "Demo", *u.Name)
	assert.True(t, utils.VerifyPassword(*u.PasswordHash, "pw"))
}

func TestSeed_ResetsExistingUser(t *testing.T) {
	users, _ := store.NewMemory()
	ctx := context.Background()
	old := "old-hash"
	code := "123456"
	existing := &domain.User{ID: uuid.New(), Email: "demo@example.com", PasswordHash: &old, OTP: &code}
	require.NoError(t, users.Create(ctx, existing))

	require.NoError(t, seed(ctx, users, "demo@example.com", "new", "", bcrypt.MinCost))

	u, err := users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Nil(t, u.OTP)
	assert.Nil(t, u.Name)
	assert.True(t, utils.VerifyPassword(*u.PasswordHash, "new"))
}
