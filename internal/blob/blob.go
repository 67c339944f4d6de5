// Package blob implements the stage-upload port against Azure Blob Storage,
// S3-compatible object stores, and Google Cloud Storage.
package blob

import (
	"context"
	"fmt"
	"strings"

	"sqlregress/internal/config"
	"sqlregress/internal/domain"
)

// NewFromConfig selects a BlobStore implementation by the configured backend.
// Returns nil with no error when no backend is configured; pipe tests then
// fail at upload time rather than at startup.
func NewFromConfig(ctx context.Context, cfg *config.BlobConfig) (domain.BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case config.BlobAzure:
		return NewAzure(cfg)
	case config.BlobS3:
		return NewS3(cfg)
	case config.BlobGCS:
		return NewGCS(ctx, cfg)
	case config.BlobNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// objectKey joins a stage-relative folder path and filename into a clean
// object key. Leading and trailing slashes on the folder are tolerated; an
// empty folder places the object at the container root.
func objectKey(folderPath, filename string) string {
	folder := strings.Trim(folderPath, "/")
	if folder == "" {
		return filename
	}
	return folder + "/" + filename
}
