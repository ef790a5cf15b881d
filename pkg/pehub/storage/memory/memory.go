package memory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/tendant/pehub/pkg/pehub"
)

// DefaultURLPrefix is used when New is given an empty prefix.
const DefaultURLPrefix = "memory://content"

type object struct {
	data      []byte
	mimeType  string
	updatedAt time.Time
}

// Backend is an in-memory implementation of the pehub.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string]object
	urlPrefix string
}

// New creates a new in-memory storage backend. Public URLs are formed as
// urlPrefix + "/" + key.
func New(urlPrefix string) *Backend {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	return &Backend{
		objects:   make(map[string]object),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}
}

var _ pehub.BlobStore = (*Backend)(nil)

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*pehub.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, pehub.ErrObjectNotFound
	}
	return &pehub.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.mimeType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}

// Upload stores the reader's content
func (b *Backend) Upload(ctx context.Context, reader io.Reader, params pehub.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = object{data: data, mimeType: mimeType, updatedAt: time.Now().UTC()}
	return nil
}

// Download returns the stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, pehub.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return pehub.ErrObjectNotFound
	}
	delete(b.objects, objectKey)
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
	return key, true
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
