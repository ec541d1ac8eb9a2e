package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".svg", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentType(tt.extension))
		})
	}
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

	key := objectKey(KindAvatar, "user-1", "Me.PNG", now)
	assert.True(t, strings.HasPrefix(key, "avatars/2025/03/user-1/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	key = objectKey(KindPost, "user-1", "noext", now)
	assert.True(t, strings.HasPrefix(key, "posts/2025/03/user-1/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	assert.NotEqual(t, objectKey(KindPost, "u", "a.png", now), objectKey(KindPost, "u", "a.png", now))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/posts/a.png", publicURL("https://cdn.example.com/", "posts/a.png"))
	assert.Equal(t, "https://cdn.example.com/posts/a.png", publicURL("https://cdn.example.com", "posts/a.png"))
}

func TestMemoryUploader(t *testing.T) {
	up := NewMemoryUploader("http://localhost/uploads")

	res, err := up.UploadImage(context.Background(), []byte("img"), "u1", "pic.gif", KindPost)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Size)
	assert.Equal(t, "http://localhost/uploads/"+res.Key, res.URL)

	data, ok := up.Object(res.Key)
	require.True(t, ok)
	assert.Equal(t, []byte("img"), data)
}
