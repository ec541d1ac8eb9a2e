package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/projecty/backend/internal/auth"
	"github.com/projecty/backend/internal/feed"
	"github.com/projecty/backend/internal/messaging"
	"github.com/projecty/backend/internal/posts"
	"github.com/projecty/backend/internal/search"
	"github.com/projecty/backend/internal/social"
	"github.com/projecty/backend/internal/storage"
	"github.com/projecty/backend/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrUserExists, http.StatusConflict},
		{auth.ErrTooFewInterests, http.StatusBadRequest},
		{posts.ErrPostNotFound, http.StatusNotFound},
		{posts.ErrOriginalPostNotFound, http.StatusNotFound},
		{posts.ErrEmptyPost, http.StatusBadRequest},
		{posts.ErrAlreadyLiked, http.StatusConflict},
		{social.ErrSelfFollow, http.StatusBadRequest},
		{social.ErrUserNotFound, http.StatusNotFound},
		{social.ErrBlocked, http.StatusForbidden},
		{messaging.ErrNotParticipant, http.StatusForbidden},
		{messaging.ErrSelfMessage, http.StatusBadRequest},
		{messaging.ErrEmptyMessage, http.StatusBadRequest},
		{messaging.ErrMessageTooLong, http.StatusBadRequest},
		{search.ErrEmptyQuery, http.StatusBadRequest},
		{feed.ErrInvalidCursor, http.StatusBadRequest},
		{fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			apiErr := classify(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}

	assert.Nil(t, classify(errors.New("boom")))
}

func TestSearchRequiresQuery(t *testing.T) {
	h, _ := newMockHandlers()
	w := doJSON(t, newRouter(h), http.MethodGet, "/api/v1/search?q=%20&type=users", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidCursorRejected(t *testing.T) {
	h, _ := newMockHandlers()
	w := doJSON(t, newRouter(h), http.MethodGet, "/api/v1/feed/hybrid?cursor=yesterday", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageUploadWithoutUploader(t *testing.T) {
	h, _ := newMockHandlers()
	w := doMultipart(t, newRouter(h), http.MethodPost, "/api/v1/posts", "u1",
		map[string]string{"content": "pic"}, "image", "cat.png", []byte("png"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestImageUploadRejectsBadExtension(t *testing.T) {
	h, _ := newMockHandlers()
	uploader := storage.NewMemoryUploader("https://cdn.test")
	h.SetUploader(uploader)
	w := doMultipart(t, newRouter(h), http.MethodPost, "/api/v1/posts", "u1",
		nil, "image", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "image", decode[util.ErrorResponse](t, w).Field)
}
