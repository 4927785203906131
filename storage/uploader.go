package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// PlayerAvatarKey builds a fresh object key for a profile avatar. Every upload
// gets a new key so CDN caches never serve a stale image.
func PlayerAvatarKey(profileID int, ext string) string {
	return fmt.Sprintf("avatars/players/%d/%s%s", profileID, uuid.NewString(), ext)
}
