package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"expenses/internal/core"
	"expenses/internal/log"
)

var (
	ErrMissingFields      = fmt.Errorf("%w: all fields are required", core.ErrBadRequest)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email address", core.ErrBadRequest)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", core.ErrBadRequest, MinPasswordLength)
	ErrEmailTaken         = fmt.Errorf("%w: user with this email already exists", core.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", core.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", core.ErrUnauthorized)
)

const (
	MinPasswordLength = 6
	DefaultTokenTTL   = 24 * time.Hour
)

// AuthService registers users and issues HS256 access tokens whose
// subject is the user ID.
type AuthService struct {
	users    core.UserRepository
	secret   []byte
	tokenTTL time.Duration
	logger   *log.Logger
	newID    func() string
	now      func() time.Time
}

func NewAuthService(users core.UserRepository, secret string, tokenTTL time.Duration, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Discard()
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AuthService{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.WithComponent(log.ComponentAuth),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return core.User{}, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return core.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := core.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return u, nil
}

// Login checks credentials and returns a signed token with its expiry.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, core.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", time.Time{}, core.User{}, ErrMissingFields
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", time.Time{}, core.User{}, ErrInvalidCredentials
		}
		return "", time.Time{}, core.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "Login rejected",
			log.NewFields().WithUser(u.ID).WithOperation(log.OpLogin).WithErrorType(log.ErrorTypeAuth).ToSlice()...)
		return "", time.Time{}, core.User{}, ErrInvalidCredentials
	}

	token, expires, err := s.IssueToken(u.ID)
	if err != nil {
		return "", time.Time{}, core.User{}, err
	}
	return token, expires, u, nil
}

func (s *AuthService) IssueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// VerifyToken returns the user ID of a valid, unexpired token.
func (s *AuthService) VerifyToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// CurrentUser loads the user a verified token refers to.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (core.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrInvalidToken
	}
	return u, err
}
