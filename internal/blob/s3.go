package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sqlregress/internal/config"
	"sqlregress/internal/domain"
)

var _ domain.BlobStore = (*S3Store)(nil)

// S3Store uploads stage files to an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3Store from config. A non-empty endpoint switches to
// path-style addressing for non-AWS object stores.
func NewS3(cfg *config.BlobConfig) (*S3Store, error) {
	opts := s3.Options{
		Region: cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.S3KeyID, cfg.S3Secret, "",
		),
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", cfg.S3Endpoint))
		opts.UsePathStyle = true
	}

	return &S3Store{client: s3.New(opts), bucket: cfg.S3Bucket}, nil
}

// Upload writes content to s3://<bucket>/<folderPath>/<filename>.
func (s *S3Store) Upload(ctx context.Context, content []byte, folderPath, filename string) error {
	key := objectKey(folderPath, filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
