package domain

import (
	"time" // Timestamps

	"github.com/google/uuid" // UUID primary keys
)

// User Model
type User struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`                                        // Primary key
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null"`                          // Unique, lowercased email
	Name         *string    `gorm:"type:varchar(255)"`                                               // Optional display name
	PasswordHash *string    `gorm:"type:varchar(255)"`                                               // bcrypt hash
	IsVerified   bool       `gorm:"not null;default:false"`                                          // Email verified through OTP
	OTP          *string    `gorm:"type:varchar(10)"`                                                // Pending one-time code
	OTPCreatedAt *time.Time `gorm:"column:otp_created_at"`                                           // When the pending code was issued
	CreatedAt    time.Time  `gorm:"autoCreateTime"`                                                  // Creation timestamp
	LastLogin    *time.Time `gorm:"column:last_login"`                                               // Last successful signin
	Coupons      []Coupon   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // One-to-many relationship with Coupon
}

// HasPendingOTP reports whether a one-time code is waiting to be used
func (u *User) HasPendingOTP() bool {
	return u.OTP != nil && u.OTPCreatedAt != nil
}

// ClearOTP removes the pending one-time code
func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPCreatedAt = nil
}

// UserView is the public representation of a user
type UserView struct {
	ID         uuid.UUID  `json:"id"`          // User ID
	Email      string     `json:"email"`       // Email address
	Name       *string    `json:"name"`        // Display name
	IsVerified bool       `json:"is_verified"` // Verification state
	LastLogin  *time.Time `json:"last_login"`  // Last signin
}

// View strips credentials and OTP state from the user
func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
	}
}
