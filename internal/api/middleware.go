package api

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidateContentType middleware ensures that requests with a body have the correct Content-Type
func ValidateContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		method := c.Request().Method

		// Only check POST, PUT, PATCH requests
		if method == "POST" || method == "PUT" || method == "PATCH" {
			contentType := c.Request().Header.Get("Content-Type")

			// Allow empty body for some requests
			if c.Request().ContentLength == 0 {
				return next(c)
			}

			// Check if Content-Type is application/json
			if !strings.HasPrefix(contentType, "application/json") {
				return BadRequestError(
					"Invalid Content-Type",
					"Content-Type must be 'application/json'. Got: "+contentType,
				)
			}
		}

		return next(c)
	}
}

// ValidateAcceptHeader middleware ensures that clients can accept JSON responses
func ValidateAcceptHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accept := c.Request().Header.Get("Accept")

		// If no Accept header, assume */*
		if accept == "" {
			return next(c)
		}

		// Check if Accept includes application/json or */*
		if !strings.Contains(accept, "application/json") &&
			!strings.Contains(accept, "*/*") &&
			!strings.Contains(accept, "application/*") {
			return BadRequestError(
				"Invalid Accept header",
				"API only returns JSON. Accept header must include 'application/json' or '*/*'. Got: "+accept,
			)
		}

		return next(c)
	}
}

// ValidateMapKey middleware checks the storage key of a map download and
// stores the unescaped key under "map_key".
func ValidateMapKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Param("*")
		key, err := url.PathUnescape(raw)
		if err != nil {
			return BadRequestError("Invalid map key", "key is not a valid URL path")
		}

		if key == "" {
			return BadRequestError("Invalid map key", "key is required")
		}
		if len(key) > 512 {
			return BadRequestError("Invalid map key", "key must not exceed 512 characters")
		}
		if path.Ext(key) != ".png" {
			return BadRequestError("Invalid map key", "only .png maps are served")
		}
		for _, seg := range strings.Split(key, "/") {
			if seg == "" || seg == "." || seg == ".." {
				return BadRequestError("Invalid map key", "key must not contain empty or relative segments")
			}
		}

		c.Set("map_key", key)
		return next(c)
	}
}

var signaturePattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidateSignedQuery middleware checks that a download link carries a
// well-formed expiry and signature.
func ValidateSignedQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expires := c.QueryParam("expires")
		if expires == "" {
			return ForbiddenError("Unsigned link", "expires parameter is required")
		}
		if _, err := strconv.ParseInt(expires, 10, 64); err != nil {
			return BadRequestError("Invalid expires parameter", "expires must be a unix timestamp. Got: "+expires)
		}

		if sig := c.QueryParam("sig"); !signaturePattern.MatchString(sig) {
			return ForbiddenError("Unsigned link", "sig must be a hex encoded HMAC-SHA256")
		}

		return next(c)
	}
}

// SecurityHeaders middleware adds security headers to responses
func SecurityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Add security headers
		c.Response().Header().Set("X-Content-Type-Options", "nosniff")
		c.Response().Header().Set("X-Frame-Options", "DENY")
		c.Response().Header().Set("X-XSS-Protection", "1; mode=block")
		c.Response().Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		return next(c)
	}
}
