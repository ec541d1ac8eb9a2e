package feed

import (
	"errors"
	"strings"
	"time"

	"github.com/projecty/backend/internal/util"
)

var ErrInvalidCursor = errors.New("cursor must be an RFC3339 timestamp or a feed cursor token")

// Cursor is an exclusive upper bound on (created_at, id). PostID is empty
// for a plain timestamp cursor, which bounds on created_at alone.
type Cursor struct {
	At     time.Time
	PostID string
}

// ParseCursor accepts "", an RFC3339 timestamp, or "<RFC3339Nano>|<postID>".
// An empty string means now.
func ParseCursor(raw string, now time.Time) (Cursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Cursor{At: now.UTC()}, nil
	}

	ts, postID, compound := strings.Cut(raw, "|")
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if compound && !util.IsUUID(postID) {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{At: at.UTC(), PostID: postID}, nil
}

// Token is the compound form of c
func (c Cursor) Token() string {
	return c.At.UTC().Format(time.RFC3339Nano) + "|" + c.PostID
}
