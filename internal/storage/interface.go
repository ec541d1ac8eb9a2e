package storage

import "context"

// Kinds of uploaded image; each gets its own key prefix
const (
	KindAvatar = "avatars"
	KindPost   = "posts"
)

// ImageUploader stores an image and returns where it can be fetched from.
// Handlers depend on this so tests can swap in MemoryUploader.
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, userID, filename, kind string) (*UploadResult, error)
}

var (
	_ ImageUploader = (*S3Uploader)(nil)
	_ ImageUploader = (*MemoryUploader)(nil)
)
