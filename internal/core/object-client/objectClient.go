package objectclient

import (
	"context"
	"time"
)

// StoredPDF describes one report PDF kept in the bucket.
type StoredPDF struct {
	Name     string    `json:"name"`
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	// ListPDFs returns the stored report PDFs under the prefix, newest first.
	ListPDFs(ctx context.Context, bucket, prefix string) ([]StoredPDF, error)
}
