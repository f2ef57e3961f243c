// Package localfs backs document artifacts with a directory tree. Meant for
// development; signed URLs point at the companion file handler and expire the
// same way bucket URLs do.
package localfs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Storage struct {
	basePath string
	baseURL  string
	secret   []byte
}

func New(basePath, baseURL string, secret []byte) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   secret,
	}, nil
}

func (s *Storage) Put(_ context.Context, key, _ string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete is idempotent to match bucket semantics.
func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *Storage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return true, nil
}

func (s *Storage) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := s.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer src.Close()
	return s.Put(ctx, dstKey, "", src)
}

// SignedURL mints an expiring link checked by the file handler. The signature
// covers the key and the expiry so neither can be swapped.
func (s *Storage) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", err
	}
	expires := time.Now().Add(ttl).Unix()
	sig := Sign(s.secret, key, expires)

	values := url.Values{}
	values.Set("key", key)
	values.Set("expires", strconv.FormatInt(expires, 10))
	values.Set("sig", sig)
	return s.baseURL + "/v1/files?" + values.Encode(), nil
}

// Sign computes the link signature; the file handler uses it to verify.
func Sign(secret []byte, key string, expires int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(key))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a presented signature and expiry.
func Verify(secret []byte, key string, expires int64, sig string) bool {
	if time.Now().Unix() > expires {
		return false
	}
	expected := Sign(secret, key, expires)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// resolve joins the key under the base path and refuses traversal outside it.
func (s *Storage) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(s.basePath, cleaned), nil
}
