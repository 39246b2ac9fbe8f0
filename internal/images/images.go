// Package images stores uploaded menu and banner pictures on the local disk and
// serves them back under a public URL prefix.
package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

var (
	// ErrNotImage is returned for uploads whose content is not a picture.
	ErrNotImage = errors.New("upload is not an image")
	// ErrTooLarge is returned for uploads above MaxSize.
	ErrTooLarge = errors.New("image too large")
)

// LocalStore writes objects below dir and builds URLs as baseURL + "/" + name.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("image dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the root directory holding stored objects.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put validates data as an image and writes it under name, replacing any
// previous object. It returns the public URL.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", ErrNotImage
	}
	clean := path.Clean("/" + name)[1:]
	if clean == "" {
		return "", errors.New("object name required")
	}
	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return s.baseURL + "/" + clean, nil
}

// MenuObject names a new menu picture of a merchant.
func MenuObject(merchantID string) string {
	return fmt.Sprintf("menus/%s/%s.jpg", merchantID, uuid.NewString())
}

// BannerObject names the banner of a merchant. Uploading again replaces it.
func BannerObject(merchantID string) string {
	return fmt.Sprintf("banners/%s.jpg", merchantID)
}
