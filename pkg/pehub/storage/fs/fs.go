package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/pehub/pkg/pehub"
)

// ErrInvalidKey is returned for keys that would resolve outside BaseDir.
var ErrInvalidKey = errors.New("invalid object key")

// Backend is a filesystem implementation of the pehub.BlobStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config locates the files on disk.
type Config struct {
	BaseDir   string // created on New when missing
	URLPrefix string // URL under which BaseDir is served, e.g. http://host/files
}

// New prepares config.BaseDir and returns a backend rooted there.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	base, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	prefix := strings.TrimRight(config.URLPrefix, "/")
	if prefix == "" {
		prefix = "file://" + filepath.ToSlash(base)
	}
	return &Backend{baseDir: base, urlPrefix: prefix}, nil
}

var _ pehub.BlobStore = (*Backend)(nil)

// resolve maps a key to a path inside baseDir.
func (b *Backend) resolve(objectKey string) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	rel, err := filepath.Rel(b.baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, objectKey)
	}
	return p, nil
}

// GetObjectMeta stats the file behind objectKey.
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*pehub.ObjectMeta, error) {
	filePath, err := b.resolve(objectKey)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, pehub.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	// Detect content type from the first bytes
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &pehub.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// Upload writes content to the filesystem. The MIME type is detected on
// read and not stored.
func (b *Backend) Upload(ctx context.Context, reader io.Reader, params pehub.UploadParams) error {
	filePath, err := b.resolve(params.ObjectKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Download opens the stored file
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := b.resolve(objectKey)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, pehub.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file. A missing file is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.resolve(objectKey)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return pehub.ErrObjectNotFound
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

func (b *Backend) PublicURL(objectKey string) string {
	return b.urlPrefix + "/" + objectKey
}

func (b *Backend) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, b.urlPrefix+"/")
	if !ok || key == "" {
		return "", false
	}
	if _, err := b.resolve(key); err != nil {
		return "", false
	}
	return key, true
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
