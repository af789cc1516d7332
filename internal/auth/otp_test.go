package auth

import (
	"testing"
	"time"

	"coupon_tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPManager_GenerateIsSixDigits(t *testing.T) {
	t.Parallel()

	m := NewOTPManager(0, 0)
	for i := 0; i < 50; i++ {
		code, err := m.Generate()
		require.NoError(t, err)
		require.Len(t, code, DefaultOTPLength)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non digit in %q", code)
		}
	}
}

func TestOTPManager_CustomLength(t *testing.T) {
	t.Parallel()

	code, err := NewOTPManager(8, time.Minute).Generate()
	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestOTPManager_ValidateSucceedsOnce(t *testing.T) {
	t.Parallel()

	m := NewOTPManager(6, DefaultOTPTTL)
	u := &domain.User{}
	code, err := m.Issue(u)
	require.NoError(t, err)
	require.True(t, u.HasPendingOTP())
	assert.Equal(t, code, *u.OTP)

	require.NoError(t, m.Validate(u, code))
	assert.Nil(t, u.OTP)
	assert.Nil(t, u.OTPCreatedAt)

	assert.ErrorIs(t, m.Validate(u, code), ErrOTPNotFound)
}

func TestOTPManager_Mismatch(t *testing.T) {
	t.Parallel()

	m := NewOTPManager(6, DefaultOTPTTL)
	u := &domain.User{}
	code, err := m.Issue(u)
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, m.Validate(u, wrong), ErrOTPMismatch)
	assert.True(t, u.HasPendingOTP(), "a wrong code must not clear the pending one")
	assert.NoError(t, m.Validate(u, code))
}

func TestOTPManager_Expiry(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewOTPManager(6, 600*time.Second)
	m.now = func() time.Time { return issued }
	u := &domain.User{}
	code, err := m.Issue(u)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(601 * time.Second) }
	assert.ErrorIs(t, m.Validate(u, code), ErrOTPExpired)
	assert.ErrorIs(t, m.Validate(u, "not-the-code"), ErrOTPExpired)

	m.now = func() time.Time { return issued.Add(600 * time.Second) }
	assert.NoError(t, m.Validate(u, code), "the window is inclusive")
}

func TestOTPManager_NoPendingCode(t *testing.T) {
	t.Parallel()

	m := NewOTPManager(6, DefaultOTPTTL)
	assert.ErrorIs(t, m.Validate(&domain.User{}, "123456"), ErrOTPNotFound)
}
