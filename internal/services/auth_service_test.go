package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/storage/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// mockUserRepo is a function-field fake for failure injection.
type mockUserRepo struct {
	createFn  func(ctx context.Context, u core.User) error
	byEmailFn func(ctx context.Context, email string) (core.User, error)
	byIDFn    func(ctx context.Context, id string) (core.User, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u core.User) error { return m.createFn(ctx, u) }
func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return m.byEmailFn(ctx, email)
}
func (m *mockUserRepo) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return m.byIDFn(ctx, id)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.New(), testSecret, time.Hour, log.Discard())

	u, err := svc.Register(ctx, " Ada ", " Ada@Example.COM ", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "s3cret!", u.PasswordHash)

	_, err = svc.Register(ctx, "Other", "ada@example.com", "another1")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, core.ErrConflict)

	token, expires, logged, err := svc.Login(ctx, "ADA@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sub)

	me, err := svc.CurrentUser(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	_, _, _, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(memory.New(), testSecret, 0, nil)

	tests := []struct {
		name, email, password string
		want                  error
	}{
		{"", "a@b.c", "secret1", ErrMissingFields},
		{"A", "", "secret1", ErrMissingFields},
		{"A", "a@b.c", "", ErrMissingFields},
		{"A", "not-an-email", "secret1", ErrInvalidEmail},
		{"A", "a@b.c", "123", ErrWeakPassword},
	}
	for _, tt := range tests {
		_, err := svc.Register(ctx, tt.name, tt.email, tt.password)
		assert.ErrorIs(t, err, tt.want)
		assert.ErrorIs(t, err, core.ErrBadRequest)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	boom := errors.New("db down")
	svc := NewAuthService(&mockUserRepo{
		byEmailFn: func(context.Context, string) (core.User, error) { return core.User{}, boom },
	}, testSecret, 0, nil)

	_, _, _, err := svc.Login(context.Background(), "a@b.c", "secret1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, core.ErrUnauthorized)
}

func TestVerifyTokenRejects(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, testSecret, time.Hour, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	token, _, err := svc.IssueToken("u1")
	require.NoError(t, err)

	sub, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	now = now.Add(2 * time.Hour)
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(&mockUserRepo{}, "another-secret-value-1234", time.Hour, nil)
	forged, _, err := other.IssueToken("u1")
	require.NoError(t, err)
	_, err = NewAuthService(&mockUserRepo{}, testSecret, time.Hour, nil).VerifyToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifyToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCurrentUserMissing(t *testing.T) {
	svc := NewAuthService(memory.New(), testSecret, 0, nil)
	_, err := svc.CurrentUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
