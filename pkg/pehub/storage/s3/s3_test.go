package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          DefaultBucket,
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, time.Hour, backend.presignDuration)
	})

	t.Run("CustomPresignDuration", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          DefaultBucket,
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			PresignDuration: 7200,
		})
		require.NoError(t, err)
		assert.Equal(t, 7200*time.Second, backend.presignDuration)
	})
}

func TestPublicBase(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "aws virtual hosted",
			config: Config{Bucket: "content", Region: "eu-central-1"},
			want:   "https://content.s3.eu-central-1.amazonaws.com",
		},
		{
			name:   "explicit public base",
			config: Config{Bucket: "content", PublicBaseURL: "https://cdn.example.com/content/"},
			want:   "https://cdn.example.com/content",
		},
		{
			name:   "minio path style",
			config: Config{Bucket: "content", Endpoint: "http://localhost:9000", UsePathStyle: true},
			want:   "http://localhost:9000/content",
		},
		{
			name:   "endpoint without scheme",
			config: Config{Bucket: "content", Endpoint: "minio:9000", UsePathStyle: true, UseSSL: false},
			want:   "http://minio:9000/content",
		},
		{
			name:   "virtual hosted custom endpoint",
			config: Config{Bucket: "content", Endpoint: "https://storage.example.com"},
			want:   "https://content.storage.example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBase(tt.config))
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	b := &Backend{publicBase: "http://localhost:9000/content"}

	key, ok := b.KeyFromURL(b.PublicURL("primary/team-sports/1_a.mp4"))
	assert.True(t, ok)
	assert.Equal(t, "primary/team-sports/1_a.mp4", key)

	key, ok = b.KeyFromURL("http://localhost:9000/content/requests/a%20b.pdf?x=1")
	assert.True(t, ok)
	assert.Equal(t, "requests/a b.pdf", key)

	_, ok = b.KeyFromURL("https://www.youtube.com/watch?v=abc")
	assert.False(t, ok)
	_, ok = b.KeyFromURL("http://localhost:9000/content/")
	assert.False(t, ok)
}

// TestS3Backend_MinIO runs against a live MinIO when S3_TEST_ENDPOINT is set.
func TestS3Backend_MinIO(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("S3_TEST_ENDPOINT not set")
	}

	backend, err := New(Config{
		Region:                 "us-east-1",
		Bucket:                 "pehub-test",
		AccessKeyID:            os.Getenv("S3_TEST_ACCESS_KEY"),
		SecretAccessKey:        os.Getenv("S3_TEST_SECRET_KEY"),
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	key := "requests/minio-test.txt"
	require.NoError(t, backend.Upload(ctx, bytes.NewReader([]byte("hello")), pehub.UploadParams{ObjectKey: key, MimeType: "text/plain"}))

	meta, err := backend.GetObjectMeta(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)

	rc, err := backend.Download(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "hello", string(data))

	url, err := backend.PresignDownload(ctx, key, "hello.txt")
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature")

	require.NoError(t, backend.Delete(ctx, key))
	_, err = backend.GetObjectMeta(ctx, key)
	assert.ErrorIs(t, err, pehub.ErrObjectNotFound)
}
