// Package auth authenticates API clients with JWT bearer tokens or API keys.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"evalgo.org/gridmapper/internal/config"
)

var (
	// ErrInvalidToken is returned when a JWT token is invalid
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a JWT token has expired
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidAPIKey is returned when no configured hash matches an API key
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// ScopeGenerate allows map generation.
const ScopeGenerate = "maps:generate"

const issuer = "gridmapper"

// Claims represents JWT custom claims
type Claims struct {
	Client string   `json:"client"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// JWTService issues and validates tokens
type JWTService struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Security.JWTSecret),
		expiration: cfg.Security.JWTExpiration,
	}
}

// GenerateToken issues a token for client. Without scopes the token only
// grants ScopeGenerate.
func (s *JWTService) GenerateToken(client string, scopes ...string) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("jwt secret is required")
	}
	if client == "" {
		return "", fmt.Errorf("client name is required")
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeGenerate}
	}

	now := time.Now()
	claims := Claims{
		Client: client,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   client,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateSecret returns 32 random bytes, URL-safe base64 encoded. It is
// used for signing and JWT secrets.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateAPIKey generates a random API key
func GenerateAPIKey() (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return "gm_" + secret, nil
}

// HashAPIKey hashes an API key for the api_key_hashes setting
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

// CompareAPIKey checks key against the configured hashes.
func CompareAPIKey(key string, hashes []string) error {
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
			return nil
		}
	}
	return ErrInvalidAPIKey
}
