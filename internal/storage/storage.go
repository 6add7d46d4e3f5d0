// Package storage persists rendered maps and hands out time-limited download
// URLs for them.
//
// Two backends implement Store: S3 (objects plus presigned GET URLs) and the
// local filesystem (files plus HMAC-signed URLs served by the API). Every
// failure is wrapped with ErrStore so callers can tell infrastructure
// failures apart from bad input.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"evalgo.org/gridmapper/internal/config"
)

// ErrStore marks artifact store failures.
var ErrStore = errors.New("artifact store failure")

// ContentTypePNG is the content type of rendered maps.
const ContentTypePNG = "image/png"

// Store persists artifacts.
type Store interface {
	// Put stores data under key and returns a download URL for it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Backend names the implementation for logs.
	Backend() string
}

// New creates the store selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case config.BackendS3:
		return NewS3(ctx, sc)
	case config.BackendFilesystem:
		return NewFileStore(sc.Path, cfg.Server.PublicBaseURL, sc.SigningSecret, sc.URLTTL)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStore, sc.Backend)
	}
}

// Key builds the storage key date/CALLSIGN/requestID/filename. The date is
// the UTC day of now; '/' in the callsign becomes '-'.
func Key(now time.Time, callsign, requestID, filename string) string {
	call := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(callsign)), "/", "-")
	return path.Join(now.UTC().Format("2006-01-02"), call, requestID, filename)
}
