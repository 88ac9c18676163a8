// Package media stores uploaded profile images.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("only jpeg and png images are accepted")
	ErrEmptyFile          = errors.New("file is empty")
)

// allowedTypes maps accepted MIME types to the stored extension.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Store persists an image and returns the URL it is served from.
type Store interface {
	Save(ctx context.Context, content io.Reader) (string, error)
}

// LocalStore writes files under Dir and serves them below BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
	MaxSize int64
}

func NewLocalStore(dir, baseURL string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: baseURL, MaxSize: maxSize}, nil
}

// Save sniffs the content type from the bytes, ignoring any client header.
func (s *LocalStore) Save(ctx context.Context, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(content, s.MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > s.MaxSize {
		return "", ErrFileTooLarge
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return "", ErrInvalidContentType
	}

	name := uuid.NewString() + ext
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return path.Join(s.BaseURL, name), nil
}

// IsRejected reports whether err is a validation failure of the upload
// itself rather than a storage fault.
func IsRejected(err error) bool {
	return errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidContentType) ||
		errors.Is(err, ErrEmptyFile)
}
