package port

import "context"

// UploadInput carries an object to store.
type UploadInput struct {
	Bucket      string
	Key         string
	ContentType string
	Data        []byte
}

// ObjectStorage abstracts the blob store holding source files and page
// images.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}
