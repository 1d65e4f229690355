package port

import (
	"context"
	"io"
)

// UploadInput carries the data needed to store an object.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// UploadOutput contains metadata about a stored object.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts remote object storage. The pipeline uses it to
// fetch the tariff reference workbook and invoice PDFs, and to publish
// finished reports.
type ObjectStorage interface {
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}
