// Package image stores comment attachments on the local filesystem.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("image: unsupported content type")
	ErrTooLarge        = errors.New("image: file too large")
	ErrEmpty           = errors.New("image: empty file")
)

// URLPrefix is where saved files are served from.
const URLPrefix = "/uploads/"

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Local struct {
	dir      string
	maxBytes int64
}

func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, maxBytes: maxBytes}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

// Save sniffs the body, writes it under a random name and returns its URL.
func (l *Local) Save(ctx context.Context, body io.Reader) (string, error) {
	_ = ctx

	data, err := io.ReadAll(io.LimitReader(body, l.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if int64(len(data)) > l.maxBytes {
		return "", ErrTooLarge
	}

	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	if err := writeFile(filepath.Join(l.dir, name), data); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

func writeFile(p string, data []byte) error {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("write image file: %w", err)
	}
	return f.Close()
}

// Delete removes the file behind imageURL. Empty URLs, URLs this store did not
// issue and files that are already gone are not errors.
func (l *Local) Delete(ctx context.Context, imageURL string) error {
	_ = ctx

	if !strings.HasPrefix(imageURL, URLPrefix) {
		return nil
	}
	name := path.Base(strings.TrimPrefix(imageURL, URLPrefix))
	if name == "." || name == "/" || name == ".." {
		return nil
	}

	err := os.Remove(filepath.Join(l.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image %s: %w", name, err)
	}
	return nil
}
