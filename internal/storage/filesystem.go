package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"evalgo.org/gridmapper/internal/config"
)

var (
	// ErrURLExpired is returned by Verify for links past their expiry.
	ErrURLExpired = errors.New("download link expired")

	// ErrSignatureInvalid is returned by Verify for tampered or foreign links.
	ErrSignatureInvalid = errors.New("download link signature invalid")

	errBadKey = errors.New("invalid storage key")
)

// MapsRoute is the URL path prefix under which the API serves stored files.
const MapsRoute = "/maps/"

// FileStore keeps artifacts in a local directory.
type FileStore struct {
	root    string
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewFileStore creates root if needed. With an empty baseURL, Put returns
// the file path instead of a URL.
func NewFileStore(root, baseURL, secret string, ttl time.Duration) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", ErrStore, root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrStore, abs, err)
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &FileStore{
		root:    abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Backend implements Store.
func (f *FileStore) Backend() string { return config.BackendFilesystem }

// Root returns the store directory.
func (f *FileStore) Root() string { return f.root }

// Path maps a key to its file, rejecting keys that escape the root.
func (f *FileStore) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", errBadKey, key)
	}
	return filepath.Join(f.root, clean), nil
}

// Put writes data under key and returns a signed URL, or the file path when
// no base URL is configured.
func (f *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", ErrStore, key, err)
	}

	target, err := f.Path(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", ErrStore, key, err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", ErrStore, key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: put %s: %w", ErrStore, key, err)
	}

	if f.baseURL == "" {
		return target, nil
	}
	return f.SignedURL(key), nil
}

// SignedURL returns the download URL for key, valid for the store's TTL.
func (f *FileStore) SignedURL(key string) string {
	expires := f.now().Add(f.ttl).Unix()

	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", f.sign(key, expires))
	return f.baseURL + MapsRoute + strings.Join(segments, "/") + "?" + q.Encode()
}

// Verify checks a download link's expiry and signature.
func (f *FileStore) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad expiry", ErrSignatureInvalid)
	}

	want := f.sign(key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if f.now().Unix() > exp {
		return ErrURLExpired
	}
	return nil
}

func (f *FileStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write([]byte(strings.TrimLeft(key, "/")))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Prune removes stored maps last written before cutoff, then any directories
// left empty. It returns the number of files removed.
func (f *FileStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	var dirs []string

	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != f.root {
				dirs = append(dirs, p)
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(p); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("%w: prune: %w", ErrStore, err)
	}

	// deepest first so parents empty out
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return removed, nil
}
