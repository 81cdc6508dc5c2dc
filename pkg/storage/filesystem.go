package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Filesystem stores objects under root/<bucket>/<path> and signs download
// URLs with an HMAC token carrying the object address and expiry.
type Filesystem struct {
	root      string
	publicURL string
	secret    []byte
}

var _ ObjectStorage = (*Filesystem)(nil)

func NewFilesystem(root, publicURL string, secret []byte) *Filesystem {
	return &Filesystem{root: root, publicURL: publicURL, secret: secret}
}

func (f *Filesystem) Upload(_ context.Context, bucket, path string, reader io.Reader) error {
	target, err := f.objectPath(bucket, path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	_, err = io.Copy(file, reader)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(target)

		return fmt.Errorf("failed to write object: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close object: %w", err)
	}

	return nil
}

func (f *Filesystem) Open(_ context.Context, bucket, path string) (io.ReadCloser, error) {
	target, err := f.objectPath(bucket, path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}

		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	return file, nil
}

func (f *Filesystem) Remove(_ context.Context, bucket, path string) error {
	target, err := f.objectPath(bucket, path)
	if err != nil {
		return err
	}

	err = os.Remove(target)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove object: %w", err)
	}

	return nil
}

// SignedURL issues an HS256 token scoped to one object.
func (f *Filesystem) SignedURL(bucket, path, fileName string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"bucket": bucket,
		"path":   path,
		"exp":    time.Now().Add(ttl).Unix(),
	}

	if fileName != "" {
		claims["filename"] = fileName
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download URL: %w", err)
	}

	return f.publicURL + "/objects?token=" + url.QueryEscape(token), nil
}

// VerifyToken validates a signed URL token and returns the bucket, path and
// attachment filename it grants access to.
func (f *Filesystem) VerifyToken(tokenString string) (bucket, path, fileName string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		return f.secret, nil
	})
	if err != nil {
		return "", "", "", fmt.Errorf("invalid download token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", "", errors.New("invalid download token claims")
	}

	bucket, _ = claims["bucket"].(string)
	path, _ = claims["path"].(string)
	fileName, _ = claims["filename"].(string)

	if bucket == "" || path == "" {
		return "", "", "", errors.New("download token missing object address")
	}

	return bucket, path, fileName, nil
}

func (f *Filesystem) objectPath(bucket, path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid object path %q", path)
	}

	return filepath.Join(f.root, bucket, cleaned), nil
}
