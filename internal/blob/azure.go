package blob

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"sqlregress/internal/config"
	"sqlregress/internal/domain"
)

var _ domain.BlobStore = (*AzureStore)(nil)

// AzureStore uploads stage files to an Azure Blob Storage container using
// shared-key credentials.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzure creates an AzureStore from config.
func NewAzure(cfg *config.BlobConfig) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AzureAccountName, cfg.AzureAccountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AzureAccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzureStore{client: client, container: cfg.AzureContainer}, nil
}

// Upload writes content to <container>/<folderPath>/<filename>.
func (s *AzureStore) Upload(ctx context.Context, content []byte, folderPath, filename string) error {
	key := objectKey(folderPath, filename)
	if _, err := s.client.UploadBuffer(ctx, s.container, key, content, nil); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}
