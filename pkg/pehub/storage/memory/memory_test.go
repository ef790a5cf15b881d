package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	memorystorage "github.com/tendant/pehub/pkg/pehub/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystorage.New("")
	ctx := context.Background()
	testKey := "primary/team-sports/1700000000000_abc.mp4"
	testData := "not really a video"

	t.Run("Upload", func(t *testing.T) {
		err := backend.Upload(ctx, strings.NewReader(testData), pehub.UploadParams{ObjectKey: testKey, MimeType: "video/mp4"})
		require.NoError(t, err)
		assert.Equal(t, 1, backend.Len())
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		meta, err := backend.GetObjectMeta(ctx, testKey)
		require.NoError(t, err)
		assert.Equal(t, testKey, meta.Key)
		assert.Equal(t, int64(len(testData)), meta.Size)
		assert.Equal(t, "video/mp4", meta.ContentType)
	})

	t.Run("Download", func(t *testing.T) {
		reader, err := backend.Download(ctx, testKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, testData, string(data))
	})

	t.Run("PublicURL_RoundTrip", func(t *testing.T) {
		url := backend.PublicURL(testKey)
		assert.Equal(t, "memory://content/"+testKey, url)

		key, ok := backend.KeyFromURL(url)
		assert.True(t, ok)
		assert.Equal(t, testKey, key)

		_, ok = backend.KeyFromURL("https://youtube.com/watch?v=1")
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, testKey))
		assert.ErrorIs(t, backend.Delete(ctx, testKey), pehub.ErrObjectNotFound)

		_, err := backend.Download(ctx, testKey)
		assert.ErrorIs(t, err, pehub.ErrObjectNotFound)
	})
}

func TestMemoryBackend_DefaultMimeType(t *testing.T) {
	backend := memorystorage.New("http://localhost:8080/files/")
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, strings.NewReader("x"), pehub.UploadParams{ObjectKey: "requests/a.bin"}))
	meta, err := backend.GetObjectMeta(ctx, "requests/a.bin")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", meta.ContentType)
	assert.Equal(t, "http://localhost:8080/files/requests/a.bin", backend.PublicURL("requests/a.bin"))
}
