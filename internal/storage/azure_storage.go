package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

type azureMirror struct {
	client    *azblob.Client
	container string
}

// NewAzureMirror mirrors artifacts into an Azure Blob Storage container
func NewAzureMirror(accountName, accountKey, container string) (ArtifactMirror, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureMirror{client: client, container: container}, nil
}

func (s *azureMirror) Mirror(ctx context.Context, jobID, name string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, objectKey(jobID, name), data, nil)
	if err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}
	return nil
}
