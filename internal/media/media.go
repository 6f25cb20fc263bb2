// Package media hands out upload and read URLs for profile photos. Bytes
// never pass through this service.
package media

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/matrimony/internal/domain"
)

var ErrUnsupportedType = errors.New("unsupported image type")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload is a one-shot URL the client PUTs the file to, and the key to
// register once the upload finished.
type Upload struct {
	URL       string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

type Store interface {
	UploadURL(ctx context.Context, userID int64, contentType string) (*Upload, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// newKey returns a fresh object key under the user's photo prefix.
func newKey(userID int64, contentType string) (string, error) {
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return domain.PhotoKeyPrefix(userID) + uuid.NewString() + ext, nil
}

// Static serves objects from a public base URL, such as a CDN or a local
// file server in development.
type Static struct {
	baseURL string
}

func NewStatic(baseURL string) *Static {
	return &Static{baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Static) UploadURL(_ context.Context, userID int64, contentType string) (*Upload, error) {
	key, err := newKey(userID, contentType)
	if err != nil {
		return nil, err
	}
	return &Upload{URL: s.baseURL + "/" + key, Key: key}, nil
}

func (s *Static) URL(_ context.Context, key string) (string, error) {
	return s.baseURL + "/" + path.Clean(strings.TrimLeft(key, "/")), nil
}

func (s *Static) Delete(context.Context, string) error {
	return nil
}
