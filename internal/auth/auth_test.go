package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"evalgo.org/gridmapper/internal/config"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	key := "gm_test-key"
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{Security: config.SecurityConfig{
		AuthEnabled:   true,
		JWTSecret:     "test-secret",
		JWTExpiration: time.Hour,
		APIKeyHashes:  []string{string(hash)},
	}}, key
}

func TestJWTService_RoundTrip(t *testing.T) {
	cfg, _ := testConfig(t)
	s := NewJWTService(cfg)

	token, err := s.GenerateToken("contest-site")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "contest-site", claims.Client)
	assert.True(t, claims.HasScope(ScopeGenerate))
}

func TestJWTService_Rejects(t *testing.T) {
	cfg, _ := testConfig(t)
	s := NewJWTService(cfg)

	_, err := s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTService(&config.Config{Security: config.SecurityConfig{JWTSecret: "other", JWTExpiration: time.Hour}})
	token, err := other.GenerateToken("x")
	require.NoError(t, err)
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService(&config.Config{Security: config.SecurityConfig{JWTSecret: "test-secret", JWTExpiration: -time.Minute}})
	token, err = expired.GenerateToken("x")
	require.NoError(t, err)
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAPIKeys(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Regexp(t, `^gm_[A-Za-z0-9_-]{43}$`, key)

	hash, err := HashAPIKey(key)
	require.NoError(t, err)
	assert.NoError(t, CompareAPIKey(key, []string{"garbage", hash}))
	assert.ErrorIs(t, CompareAPIKey("gm_wrong", []string{hash}), ErrInvalidAPIKey)
	assert.ErrorIs(t, CompareAPIKey(key, nil), ErrInvalidAPIKey)
}

func TestRequireGenerate(t *testing.T) {
	cfg, key := testConfig(t)
	m := NewMiddleware(cfg)
	token, err := NewJWTService(cfg).GenerateToken("contest-site")
	require.NoError(t, err)
	readOnly, err := NewJWTService(cfg).GenerateToken("viewer", "maps:read")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"bearer token", "Authorization", "Bearer " + token, http.StatusOK},
		{"basic scheme", "Authorization", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"missing scope", "Authorization", "Bearer " + readOnly, http.StatusForbidden},
		{"api key", HeaderAPIKey, key, http.StatusOK},
		{"wrong api key", HeaderAPIKey, "gm_other", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/generate-map", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := m.RequireGenerate(func(c echo.Context) error {
				return c.String(http.StatusOK, ClientName(c))
			})(c)

			if tt.wantStatus == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.wantStatus, he.Code)
		})
	}
}

func TestRequireGenerate_Disabled(t *testing.T) {
	m := NewMiddleware(&config.Config{})
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	err := m.RequireGenerate(func(c echo.Context) error {
		return c.String(http.StatusOK, ClientName(c))
	})(c)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", rec.Body.String())
}
