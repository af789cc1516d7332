package auth

import (
	"context" // Request scoped cancellation
	"errors"  // Sentinel errors
	"fmt"     // Error wrapping
	"math"    // Rounding the expiry
	"strconv" // Expiry text
	"strings" // Email normalization
	"time"    // Timestamps

	"coupon_tracker/internal/domain" // Domain models
	"coupon_tracker/internal/events" // Domain events
	"coupon_tracker/internal/mailer" // Email delivery
	"coupon_tracker/internal/store"  // Credential store
	"coupon_tracker/internal/utils"  // Password hashing

	"github.com/google/uuid"     // User identifiers
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Workflow errors
var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnverified         = errors.New("email not verified")
	ErrDeliveryFailed     = errors.New("email delivery failed")
	ErrUnauthenticated    = errors.New("not authenticated")
)

// Mail templates
const (
	verifySubject = "Your DRS App Verification Code"
	resendSubject = "Your DRS App Verification Code (Resend)"
	resetSubject  = "Your DRS App Password Reset Code"
	verifyBody    = "Your verification code is: %s\n\nThe code expires in %s."
	resetBody     = "Your password reset code is: %s\n\nThe code expires in %s."
)

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

// Session is the result of a successful signin
type Session struct {
	AccessToken string          // Signed bearer token
	ExpiresAt   time.Time       // Token expiry
	User        domain.UserView // Sanitized user
}

// Service runs the signup, verification, signin and password reset workflows
type Service struct {
	users      store.UserStore  // Credential store
	otp        *OTPManager      // One-time codes
	tokens     *TokenIssuer     // Session tokens
	mailer     mailer.Mailer    // Out-of-band delivery
	events     events.Publisher // Domain events
	bcryptCost int              // Password hashing cost
	now        func() time.Time // Clock
}

// NewService wires the workflow to its collaborators
func NewService(users store.UserStore, otp *OTPManager, tokens *TokenIssuer, m mailer.Mailer, pub events.Publisher, bcryptCost int) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		users:      users,
		otp:        otp,
		tokens:     tokens,
		mailer:     m,
		events:     pub,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeEmail trims and lowercases an email so lookups are case insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unverified user and mails it a verification code. When the
// mail cannot be delivered the user is deleted again, so every stored user got
// its code.
func (s *Service) Signup(ctx context.Context, email, password string, name *string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || !validPassword(password) {
		return nil, ErrValidation
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{ID: uuid.New(), Email: email, Name: trimName(name), PasswordHash: &hash}
	code, err := s.otp.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrConflict // Lost a race with a concurrent signup
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	logrus.WithField("email", email).Info("New user created")

	if err := s.mailer.Send(ctx, u.Email, verifySubject, s.body(verifyBody, code)); err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,       // Recipient
			"error": err.Error(), // Error message
		}).Error("Failed to send verification email")
		// Roll back even if the request was cancelled meanwhile
		if delErr := s.users.Delete(context.WithoutCancel(ctx), u.ID); delErr != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": u.ID,           // Orphaned user
				"error":   delErr.Error(), // Error message
			}).Error("Failed to roll back user after delivery failure")
		}
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	logrus.WithField("email", email).Info("OTP email sent")
	events.Emit(ctx, s.events, events.New(events.UserSignedUp, u.ID.String(), map[string]any{"email": email}))
	return u, nil
}

// VerifyOTP checks the signup code. Verifying an already verified user is a
// no-op reported through alreadyVerified.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (alreadyVerified bool, err error) {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return false, err
	}
	if u.IsVerified {
		logrus.WithField("email", u.Email).Info("OTP verification skipped, user already verified")
		return true, nil
	}
	if err := s.otp.Validate(u, code); err != nil {
		logrus.WithFields(logrus.Fields{
			"email":  u.Email,     // User
			"reason": err.Error(), // Failure kind
		}).Warn("OTP verification failed")
		return false, err
	}
	u.IsVerified = true
	if err := s.users.Save(ctx, u); err != nil {
		return false, fmt.Errorf("save user: %w", err)
	}
	logrus.WithField("email", u.Email).Info("User email verified")
	events.Emit(ctx, s.events, events.New(events.UserVerified, u.ID.String(), nil))
	return false, nil
}

// ResendOTP issues and mails a new signup code unless the user is verified
func (s *Service) ResendOTP(ctx context.Context, email string) (alreadyVerified bool, err error) {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return false, err
	}
	if u.IsVerified {
		logrus.WithField("email", u.Email).Info("Resend OTP skipped, user already verified")
		return true, nil
	}
	if err := s.reissue(ctx, u, resendSubject, verifyBody); err != nil {
		return false, err
	}
	return false, nil
}

// Signin checks credentials and issues a session token
func (s *Service) Signin(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithField("email", email).Warn("Login failed: user not found")
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.PasswordHash == nil || !utils.VerifyPassword(*u.PasswordHash, password) {
		logrus.WithField("email", u.Email).Warn("Login failed: invalid password")
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		logrus.WithField("email", u.Email).Warn("Login failed: unverified user")
		return nil, ErrUnverified
	}
	now := s.now()
	u.LastLogin = &now
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	token, exp, err := s.tokens.Issue(u.ID.String(), s.tokens.TTL())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	logrus.WithField("email", u.Email).Info("User logged in")
	return &Session{AccessToken: token, ExpiresAt: exp, User: u.View()}, nil
}

// RequestPasswordReset mails a reset code; verification state does not matter
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	return s.reissue(ctx, u, resetSubject, resetBody)
}

// ResetPassword checks the reset code and replaces the password hash
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if !validPassword(newPassword) {
		return ErrValidation
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := s.otp.Validate(u, code); err != nil {
		logrus.WithFields(logrus.Fields{
			"email":  u.Email,     // User
			"reason": err.Error(), // Failure kind
		}).Warn("Password reset failed")
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = &hash
	if err := s.users.Save(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	logrus.WithField("email", u.Email).Info("Password reset")
	events.Emit(ctx, s.events, events.New(events.UserPasswordReset, u.ID.String(), nil))
	return nil
}

// Authenticate resolves a bearer token to its user. Every failure collapses
// into ErrUnauthenticated; the cause is only logged.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.tokens.Verify(token)
	if err != nil {
		logrus.WithField("reason", err.Error()).Debug("Token rejected")
		return nil, ErrUnauthenticated
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		logrus.WithField("subject", subject).Warn("Token subject is not a user id")
		return nil, ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": id,          // Token subject
			"error":   err.Error(), // Error message
		}).Warn("No user for token subject")
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// lookup finds a user by email, mapping a miss to ErrUserNotFound
func (s *Service) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		logrus.WithField("email", email).Warn("User not found")
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// reissue stores a new code on the user and mails it. The code stays stored
// when delivery fails.
func (s *Service) reissue(ctx context.Context, u *domain.User, subject, bodyFormat string) error {
	code, err := s.otp.Issue(u)
	if err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	if err := s.users.Save(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"email":   u.Email, // User
		"subject": subject, // Mail kind
	}).Info("OTP regenerated")
	if err := s.mailer.Send(ctx, u.Email, subject, s.body(bodyFormat, code)); err != nil {
		logrus.WithFields(logrus.Fields{
			"email": u.Email,     // Recipient
			"error": err.Error(), // Error message
		}).Error("Failed to send OTP email")
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

func (s *Service) body(format, code string) string {
	return fmt.Sprintf(format, code, expiresIn(s.otp.TTL()))
}

// expiresIn renders a validity window in whole minutes, rounded up
func expiresIn(ttl time.Duration) string {
	minutes := int(math.Ceil(ttl.Minutes()))
	if minutes <= 1 {
		return "1 minute"
	}
	return strconv.Itoa(minutes) + " minutes"
}

// validPassword accepts non-empty passwords bcrypt can hash; the limit is in bytes, not characters
func validPassword(p string) bool {
	return p != "" && len(p) <= maxPasswordBytes
}

func trimName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
