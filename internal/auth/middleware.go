package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"evalgo.org/gridmapper/internal/config"
)

const (
	// ContextKeyClaims is the key for storing JWT claims in context
	ContextKeyClaims = "claims"

	// HeaderAPIKey carries an API key instead of a bearer token
	HeaderAPIKey = "X-API-Key"
)

// Middleware is the authentication middleware
type Middleware struct {
	jwtService *JWTService
	config     *config.Config
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{
		jwtService: NewJWTService(cfg),
		config:     cfg,
	}
}

// RequireAuth accepts a bearer token or an API key. API key clients are
// granted every scope.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Skip if auth is disabled
		if !m.config.Security.AuthEnabled {
			return next(c)
		}

		if key := c.Request().Header.Get(HeaderAPIKey); key != "" {
			if err := CompareAPIKey(key, m.config.Security.APIKeyHashes); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
			}
			c.Set(ContextKeyClaims, &Claims{Client: "api-key", Scopes: []string{ScopeGenerate}})
			return next(c)
		}

		// Extract token from Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
		}

		// Parse Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		// Store claims in context
		c.Set(ContextKeyClaims, claims)

		return next(c)
	}
}

// RequireScope is middleware that requires a token scope. It must run
// after RequireAuth.
func (m *Middleware) RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip if auth is disabled
			if !m.config.Security.AuthEnabled {
				return next(c)
			}

			claims, ok := GetClaims(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !claims.HasScope(scope) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}

			return next(c)
		}
	}
}

// RequireGenerate guards the map generation endpoint.
func (m *Middleware) RequireGenerate(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(m.RequireScope(ScopeGenerate)(next))
}

// GetClaims extracts JWT claims from Echo context
func GetClaims(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ContextKeyClaims).(*Claims)
	return claims, ok
}

// ClientName returns the authenticated client, or "anonymous".
func ClientName(c echo.Context) string {
	if claims, ok := GetClaims(c); ok {
		return claims.Client
	}
	return "anonymous"
}
