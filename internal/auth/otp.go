package auth

import (
	"crypto/rand" // Secure random digits
	"errors"      // Sentinel errors
	"math/big"    // Uniform digit sampling
	"strings"     // Code building
	"time"        // Expiry checks

	"coupon_tracker/internal/domain" // Domain models
)

var (
	// ErrOTPNotFound is returned when the user has no pending code
	ErrOTPNotFound = errors.New("no OTP found")
	// ErrOTPExpired is returned when the pending code is older than the TTL
	ErrOTPExpired = errors.New("OTP expired")
	// ErrOTPMismatch is returned when the submitted code is wrong
	ErrOTPMismatch = errors.New("invalid OTP")
)

// DefaultOTPLength and DefaultOTPTTL match the emailed verification codes
const (
	DefaultOTPLength = 6
	DefaultOTPTTL    = 600 * time.Second
)

// OTPManager generates, stores and checks one-time codes on user records
type OTPManager struct {
	length int              // Number of digits
	ttl    time.Duration    // Validity window
	now    func() time.Time // Clock
}

// NewOTPManager creates a manager; non-positive values fall back to the defaults
func NewOTPManager(length int, ttl time.Duration) *OTPManager {
	if length <= 0 {
		length = DefaultOTPLength
	}
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPManager{length: length, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

// TTL is the validity window of issued codes
func (m *OTPManager) TTL() time.Duration {
	return m.ttl
}

// Generate returns a numeric code of the configured length
func (m *OTPManager) Generate() (string, error) {
	var b strings.Builder
	b.Grow(m.length)
	ten := big.NewInt(10)
	for i := 0; i < m.length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Issue stores a fresh code and its issuance time on the user and returns the code.
// The caller persists the user.
func (m *OTPManager) Issue(u *domain.User) (string, error) {
	code, err := m.Generate()
	if err != nil {
		return "", err
	}
	issued := m.now()
	u.OTP = &code
	u.OTPCreatedAt = &issued
	return code, nil
}

// Validate checks a submitted code and clears it on success.
// The caller persists the user.
func (m *OTPManager) Validate(u *domain.User, code string) error {
	if !u.HasPendingOTP() {
		return ErrOTPNotFound
	}
	if m.now().Sub(*u.OTPCreatedAt) > m.ttl {
		return ErrOTPExpired
	}
	if *u.OTP != code {
		return ErrOTPMismatch
	}
	u.ClearOTP()
	return nil
}
