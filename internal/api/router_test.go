package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"coupon_tracker/internal/auth"
	"coupon_tracker/internal/config"
	"coupon_tracker/internal/coupons"
	"coupon_tracker/internal/domain"
	"coupon_tracker/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type flakyMailer struct {
	mu   sync.Mutex
	fail bool
}

func (m *flakyMailer) Send(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	return nil
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	users  *store.MemoryUserStore
	mail   *flakyMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		CORSOrigins: []string{"http://localhost:3000"},
		RateLimit:   config.RateLimitConfig{Enabled: false},
	}
	users, couponStore := store.NewMemory()
	tokens, err := auth.NewTokenIssuer("test-secret", "HS256", time.Hour)
	require.NoError(t, err)
	mail := &flakyMailer{}
	authSvc := auth.NewService(users, auth.NewOTPManager(6, 10*time.Minute), tokens, mail, nil, bcrypt.MinCost)
	couponSvc := coupons.NewService(couponStore, nil, nil)

	r, err := NewRouter(Deps{Config: cfg, Auth: authSvc, Coupons: couponSvc})
	require.NoError(t, err)
	return &testServer{t: t, router: r, users: users, mail: mail}
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) code(email string) string {
	s.t.Helper()
	u, err := s.users.GetByEmail(context.Background(), email)
	require.NoError(s.t, err)
	require.NotNil(s.t, u.OTP)
	return *u.OTP
}

// login signs up, verifies and signs in a user and returns its token
func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": email, "otp": s.code(email)}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, "/api/auth/signin", gin.H{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var resp SigninResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "not-an-email", "password": "pw"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "a@x.com", "password": "pw", "name": "Ann"}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["message"], "Signup successful")

	w = s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "a@x.com", "password": "other"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered.", decode[map[string]string](t, w)["error"])

	w = s.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "a@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	code := s.code("a@x.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": wrong}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid OTP.", decode[map[string]string](t, w)["error"])

	w = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "ghost@x.com", "otp": code}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": code}, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "a@x.com", "otp": code}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email already verified.", decode[map[string]string](t, w)["message"])

	w = s.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "a@x.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect email or password", decode[map[string]string](t, w)["error"])

	w = s.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "a@x.com", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[SigninResponse](t, w)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, "bearer", session.TokenType)
	assert.True(t, session.ExpiresAt.After(time.Now()))
	assert.Equal(t, "a@x.com", session.User.Email)
	raw := decode[struct {
		User map[string]any `json:"user"`
	}](t, w)
	for _, hidden := range []string{"password_hash", "PasswordHash", "otp", "OTP", "otp_created_at", "created_at"} {
		assert.NotContains(t, raw.User, hidden)
	}

	w = s.do(http.MethodGet, "/api/auth/me", nil, session.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[domain.UserView](t, w)
	assert.Equal(t, "a@x.com", me.Email)
	require.NotNil(t, me.Name)
	assert.Equal(t, "Ann", *me.Name)

	w = s.do(http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"error":"Not authenticated"}`, w.Body.String())
}

func TestSignup_DeliveryFailure(t *testing.T) {
	s := newTestServer(t)
	s.mail.fail = true

	w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "b@x.com", "password": "pw"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	_, err := s.users.GetByEmail(context.Background(), "b@x.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	s.login("c@x.com", "old")

	w := s.do(http.MethodPost, "/api/auth/request-password-reset", gin.H{"email": "ghost@x.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/auth/request-password-reset", gin.H{"email": "c@x.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "c@x.com", "otp": s.code("c@x.com"), "new_password": "new"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/auth/signin", gin.H{"email": "c@x.com", "password": "new"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "c@x.com", "otp": "123456", "new_password": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No OTP found. Please request a new code.", decode[map[string]string](t, w)["error"])
}

func TestPasswordTooLongForBcrypt(t *testing.T) {
	s := newTestServer(t)
	multibyte := strings.Repeat("é", 72) // within 72 characters, over 72 bytes

	for _, pw := range []string{multibyte, strings.Repeat("a", 73)} {
		w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "e@x.com", "password": pw}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	s.login("f@x.com", "old")
	w := s.do(http.MethodPost, "/api/auth/request-password-reset", gin.H{"email": "f@x.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/auth/reset-password", gin.H{"email": "f@x.com", "otp": s.code("f@x.com"), "new_password": multibyte}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestResendOTP(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "d@x.com", "password": "pw"}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/auth/resend-otp", gin.H{"email": "d@x.com"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/auth/resend-otp", gin.H{"email": "ghost@x.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.mail.fail = true
	w = s.do(http.MethodPost, "/api/auth/resend-otp", gin.H{"email": "d@x.com"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCoupons_AnonymousListIsEmpty(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/coupons/", "/api/coupons"} {
		w := s.do(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `[]`, w.Body.String())
	}
	w := s.do(http.MethodGet, "/api/coupons/", nil, "invalid-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCoupons_Flow(t *testing.T) {
	s := newTestServer(t)
	token := s.login("owner@x.com", "pw")

	w := s.do(http.MethodPost, "/api/coupons/", gin.H{"barcode": "123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/coupons/", gin.H{"barcode": "123", "value": 1.50, "currency": "EUR"}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.Coupon](t, w)
	assert.Equal(t, "123", created.Barcode)
	require.NotNil(t, created.Value)
	assert.InDelta(t, 1.5, *created.Value, 0.001)

	w = s.do(http.MethodPost, "/api/coupons/", gin.H{"barcode": "456", "currency": "EURO"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/coupons/?used=false", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]domain.Coupon](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	w = s.do(http.MethodGet, "/api/coupons/?used=true", nil, token)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(http.MethodGet, "/api/coupons/?used=maybe", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/coupons/"+created.ID.String()+"/mark-used", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	used := decode[domain.Coupon](t, w)
	assert.True(t, used.IsUsed)
	assert.NotNil(t, used.UsedAt)

	w = s.do(http.MethodGet, "/api/coupons/?used=false", nil, token)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = s.do(http.MethodGet, "/api/coupons/?used=true", nil, token)
	require.Len(t, decode[[]domain.Coupon](t, w), 1)

	w = s.do(http.MethodGet, "/api/coupons/"+created.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/coupons/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/api/coupons/"+created.ID.String(), nil, token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = s.do(http.MethodGet, "/api/coupons/"+created.ID.String(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCoupons_OtherUsersAreInvisible(t *testing.T) {
	s := newTestServer(t)
	alice := s.login("alice@x.com", "pw")
	bob := s.login("bob@x.com", "pw")

	w := s.do(http.MethodPost, "/api/coupons/", gin.H{"barcode": "alice-1"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.Coupon](t, w).ID.String()

	w = s.do(http.MethodGet, "/api/coupons/", nil, bob)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/coupons/" + id},
		{http.MethodPut, "/api/coupons/" + id + "/mark-used"},
		{http.MethodDelete, "/api/coupons/" + id},
	} {
		w = s.do(req.method, req.path, nil, bob)
		assert.Equal(t, http.StatusNotFound, w.Code, req.method)
		assert.Equal(t, "Coupon not found", decode[map[string]string](t, w)["error"])
	}

	w = s.do(http.MethodGet, "/api/coupons/", nil, alice)
	require.Len(t, decode[[]domain.Coupon](t, w), 1)
}

func TestNewRouter_RejectsBadOrigin(t *testing.T) {
	cfg := &config.Config{CORSOrigins: []string{"localhost:3000"}}
	_, err := NewRouter(Deps{Config: cfg})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/coupons/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
