package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "http://localhost:8080/files"})
	require.NoError(t, err)

	ctx := context.Background()
	key := "primary/team-sports/1700000000000_abc.txt"
	data := []byte("hello fs")

	require.NoError(t, backend.Upload(ctx, bytes.NewReader(data), pehub.UploadParams{ObjectKey: key, MimeType: "text/plain"}))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.Size)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, got)

	require.NoError(t, backend.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(tmp, key))
	assert.True(t, os.IsNotExist(err))

	// Empty parent directories are removed, the base directory is kept.
	_, err = os.Stat(filepath.Join(tmp, "primary"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tmp)
	assert.NoError(t, err)

	assert.ErrorIs(t, backend.Delete(ctx, key), pehub.ErrObjectNotFound)
	_, err = backend.Download(ctx, key)
	assert.ErrorIs(t, err, pehub.ErrObjectNotFound)
}

func TestFSBackend_URLs(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp, URLPrefix: "http://localhost:8080/files/"})
	require.NoError(t, err)

	url := backend.PublicURL("requests/x1.pdf")
	assert.Equal(t, "http://localhost:8080/files/requests/x1.pdf", url)

	key, ok := backend.KeyFromURL(url)
	assert.True(t, ok)
	assert.Equal(t, "requests/x1.pdf", key)

	_, ok = backend.KeyFromURL("https://example.com/requests/x1.pdf")
	assert.False(t, ok)
	_, ok = backend.KeyFromURL("http://localhost:8080/files/../../etc/passwd")
	assert.False(t, ok)
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	err = backend.Upload(context.Background(), bytes.NewReader([]byte("x")), pehub.UploadParams{ObjectKey: "../outside.txt"})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
