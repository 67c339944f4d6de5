package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"sqlregress/internal/config"
	"sqlregress/internal/domain"
)

var _ domain.BlobStore = (*GCSStore)(nil)

// GCSStore uploads stage files to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCSStore from config. When no credentials file is set,
// application default credentials are used.
func NewGCS(ctx context.Context, cfg *config.BlobConfig) (*GCSStore, error) {
	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.GCSBucket}, nil
}

// Upload writes content to gs://<bucket>/<folderPath>/<filename>.
func (s *GCSStore) Upload(ctx context.Context, content []byte, folderPath, filename string) error {
	key := objectKey(folderPath, filename)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(content); err != nil {
		w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}
