package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farmhelper/farmhelper_backend/models"
)

// ---------- Test harness ----------

type testValidator struct {
	validator *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.validator.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb
}

func postJSON(e *echo.Echo, target, body string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = handler(c)
	return rec
}

// ---------- Mocks ----------

// fakeStore is an in-memory stand-in for both the user and registration
// repositories.
type fakeStore struct {
	users      map[string]*models.User        // keyed by username
	pending    map[string]*models.PendingUser // keyed by email
	otps       []models.EmailOTP
	lookupErr  error
	promoteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*models.User),
		pending: make(map[string]*models.PendingUser),
	}
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return nil, nil
}

func (s *fakeStore) FindByEmailOrUsername(_ context.Context, email, username string) (*models.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return nil, nil
}

func (s *fakeStore) UpsertPending(_ context.Context, username, email, passwordHash string) error {
	s.pending[email] = &models.PendingUser{
		ID:        primitive.NewObjectID(),
		Username:  username,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: time.Now(),
	}
	return nil
}

func (s *fakeStore) FindPendingByEmail(_ context.Context, email string) (*models.PendingUser, error) {
	if pending, ok := s.pending[email]; ok {
		return pending, nil
	}
	return nil, nil
}

func (s *fakeStore) CreateOTP(_ context.Context, email, otp string, expiresAt time.Time) error {
	s.otps = append(s.otps, models.EmailOTP{
		ID:        primitive.NewObjectID(),
		Email:     email,
		OTP:       otp,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *fakeStore) FindLatestOTPByEmail(_ context.Context, email string) (*models.EmailOTP, error) {
	var latest *models.EmailOTP
	for i := range s.otps {
		otp := &s.otps[i]
		if otp.Email != email {
			continue
		}
		if latest == nil || !otp.CreatedAt.Before(latest.CreatedAt) {
			latest = otp
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (s *fakeStore) PromotePending(_ context.Context, pending *models.PendingUser) (*models.User, error) {
	if s.promoteErr != nil {
		return nil, s.promoteErr
	}
	now := time.Now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  pending.Username,
		Email:     pending.Email,
		Password:  pending.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[user.Username] = user
	delete(s.pending, pending.Email)

	remaining := s.otps[:0]
	for _, otp := range s.otps {
		if otp.Email != pending.Email {
			remaining = append(remaining, otp)
		}
	}
	s.otps = remaining

	return user, nil
}

type sentMail struct {
	email string
	otp   string
}

type mockMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *mockMailer) SendOTPEmail(email, otp string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{email: email, otp: otp})
	return nil
}
