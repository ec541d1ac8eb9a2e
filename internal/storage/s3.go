// Package storage uploads user images (avatars and post images) to S3.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Uploader puts images into a bucket fronted by baseURL (usually a CDN)
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
	now     func() time.Time
}

// UploadResult describes a stored object
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3Uploader{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
		now:     time.Now,
	}, nil
}

// UploadImage stores data under {kind}/{year}/{month}/{userID}/{uuid}{ext}
func (u *S3Uploader) UploadImage(ctx context.Context, data []byte, userID, filename, kind string) (*UploadResult, error) {
	now := u.now()
	key := objectKey(kind, userID, filename, now)
	ext := filepath.Ext(key)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(getContentType(ext)),
		CacheControl: aws.String("max-age=86400"),
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"file-type":         kind,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:    key,
		URL:    publicURL(u.baseURL, key),
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(data)),
	}, nil
}

func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// CheckBucketAccess is used by the server at startup
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}

// MemoryUploader keeps uploads in memory. Used in development without
// AWS credentials and in tests.
type MemoryUploader struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryUploader(baseURL string) *MemoryUploader {
	return &MemoryUploader{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MemoryUploader) UploadImage(_ context.Context, data []byte, userID, filename, kind string) (*UploadResult, error) {
	key := objectKey(kind, userID, filename, time.Now())

	m.mu.Lock()
	m.objects[key] = append([]byte(nil), data...)
	m.mu.Unlock()

	return &UploadResult{Key: key, URL: publicURL(m.BaseURL, key), Size: int64(len(data))}, nil
}

// Object returns a stored upload
func (m *MemoryUploader) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

func objectKey(kind, userID, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s", kind, now.Year(), now.Month(), userID, uuid.New().String(), ext)
}

func publicURL(baseURL, key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), key)
}

func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
