package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlregress/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		file   string
		want   string
	}{
		{"plain folder", "landing/orders", "f.csv", "landing/orders/f.csv"},
		{"trailing slash", "landing/orders/", "f.csv", "landing/orders/f.csv"},
		{"leading slash", "/landing", "f.csv", "landing/f.csv"},
		{"empty folder", "", "f.csv", "f.csv"},
		{"slash only", "/", "f.csv", "f.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectKey(tt.folder, tt.file))
		})
	}
}

func TestNewFromConfigNoBackend(t *testing.T) {
	store, err := NewFromConfig(context.Background(), &config.BlobConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestNewFromConfigIncompleteAzure(t *testing.T) {
	cfg := &config.BlobConfig{Backend: config.BlobAzure, AzureAccountName: "acct"}
	_, err := NewFromConfig(context.Background(), cfg)
	assert.Error(t, err)
}
