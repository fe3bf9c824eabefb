package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"darwinawards/internal/config"
	"darwinawards/internal/middleware/auth"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAuthDisabled       = errors.New("admin authentication is not configured")
)

// Claims carried by admin access tokens.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(username, password string) (accessToken string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// authService authenticates the single session administrator configured
// through ADMIN_USERNAME and ADMIN_PASSWORD_HASH.
type authService struct {
	adminUsername  string
	adminHash      string
	jwtSecret      []byte
	accessTokenTTL time.Duration
	now            func() time.Time
}

func NewAuthService(cfg *config.Config) AuthService {
	return &authService{
		adminUsername:  cfg.AdminUsername,
		adminHash:      cfg.AdminPasswordHash,
		jwtSecret:      []byte(cfg.JWTSecret),
		accessTokenTTL: cfg.AccessTokenTTL,
		now:            time.Now,
	}
}

func (s *authService) Login(username, password string) (string, time.Time, error) {
	if s.adminHash == "" || len(s.jwtSecret) == 0 {
		return "", time.Time{}, ErrAuthDisabled
	}

	if subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) != 1 {
		auth.BurnComparison(password)
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := auth.VerifyPassword(s.adminHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.accessTokenTTL)
	claims := Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrAuthDisabled
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
