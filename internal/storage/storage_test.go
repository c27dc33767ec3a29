package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", endpointURL("s3.example.com", true))
	assert.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000", true))
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	_, err := m.GeneratePresignedDownloadURL(ctx, "missing.json", 0)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, m.PutObject(ctx, "exports/u1/p1.json", "application/json", []byte(`{"ok":true}`)))
	body, ok := m.Object("exports/u1/p1.json")
	require.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	url, err := m.GeneratePresignedDownloadURL(ctx, "exports/u1/p1.json", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=900")

	require.NoError(t, m.DeleteObject(ctx, "exports/u1/p1.json"))
	assert.Zero(t, m.Len())
}
