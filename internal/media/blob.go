package media

import (
	"context"
	"fmt"
	"net/url"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// BlobStore uploads images to a Cloud Storage bucket and returns a Firebase
// token download URL.
type BlobStore struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewBlobStore creates a BlobStore writing to bucket, which is named bucketName.
func NewBlobStore(bucket *gcs.BucketHandle, bucketName string) *BlobStore {
	return &BlobStore{bucket: bucket, bucketName: bucketName}
}

func (s *BlobStore) Strategy() string { return StrategyBlob }

// Store writes the image under posts/{owner}/ with a fresh download token.
func (s *BlobStore) Store(ctx context.Context, ownerUID string, img *Upload) (string, error) {
	objectPath := objectName(ownerUID, img.Filename)
	token := uuid.NewString()

	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = img.ContentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := w.Write(img.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", objectPath, err)
	}
	return downloadURL(s.bucketName, objectPath, token), nil
}

func objectName(ownerUID, filename string) string {
	base := path.Base(filename)
	if base == "." || base == "/" {
		base = "image"
	}
	return fmt.Sprintf("posts/%s/%s-%s", ownerUID, uuid.NewString(), base)
}

func downloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}
