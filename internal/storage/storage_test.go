package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"familyvault/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "documents/acc-1/doc-1.pdf", DocumentKey("acc-1", "doc-1", ".pdf"))
	assert.Equal(t, "documents/acc-1/doc-1", DocumentKey("acc-1", "doc-1", ""))
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()

	info, err := st.Put(ctx, "documents/a/b.pdf", strings.NewReader("%PDF-1.4 hello"), PutObjectOptions{Size: -1, ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(14), info.Size)
	assert.NotEmpty(t, info.ETag)

	rc, got, err := st.Get(ctx, "documents/a/b.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(body))
	assert.Equal(t, "application/pdf", got.ContentType)

	require.NoError(t, st.Delete(ctx, "documents/a/b.pdf"))
	_, _, err = st.Get(ctx, "documents/a/b.pdf")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"missing endpoint", config.MinIOConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}, "endpoint is required"},
		{"missing credentials", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "c"}, "credentials are required"},
		{"missing bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := NewMinIO(context.Background(), tt.cfg)
			assert.Nil(t, st)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
