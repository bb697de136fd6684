package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"matrix_orchestrator/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("operator not found")
	ErrInvalidToken    = errors.New("invalid token")
	ErrNoSigningKey    = errors.New("auth signing key is not configured")
)

// AuthConfig comes from the auth section of the config file.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// AuthService signs operators in against the configured accounts.
type AuthService struct {
	authRepo   repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
}

func NewAuthService(repo repository.Authorization, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{
		authRepo:   repo,
		signingKey: []byte(cfg.SigningKey),
		tokenTTL:   cfg.TokenTTL,
	}
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(username, password string) (string, error) {
	if len(s.signingKey) == 0 {
		return "", ErrNoSigningKey
	}
	op, err := s.authRepo.GetByUsername(username)
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrUserNotFound
	}

	if err := verifyPassword(op.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	return s.issueToken(op.ID)
}

// ParseToken parses JWT and returns the operator ID
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	if len(s.signingKey) == 0 {
		return 0, ErrNoSigningKey
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return 0, ErrInvalidToken
	}

	return claims.OperatorID, nil
}

// HashPassword returns the bcrypt hash stored in auth.operators.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// helper: issue a signed JWT for an operator
func (s *AuthService) issueToken(operatorID int) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}
