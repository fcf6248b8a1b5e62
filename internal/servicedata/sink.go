package servicedata

import (
	"context"
	"datapack/internal/config"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Sink receives generated service data files.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	// Location describes where name ends up, for logging.
	Location(name string) string
}

type FileSink struct {
	Dir string
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (fs *FileSink) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(fs.Dir, 0755); err != nil {
		return fmt.Errorf("create service data directory %s: %w", fs.Dir, err)
	}
	p := fs.Location(name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (fs *FileSink) Location(name string) string {
	return filepath.Join(fs.Dir, name)
}

// BlobSink uploads service data files into an Azure Blob Storage container.
type BlobSink struct {
	client    *azblob.Client
	container string
	prefix    string
}

var _ Sink = (*BlobSink)(nil)

func NewBlobSink(ctx context.Context, cfg config.AzureConfig) (*BlobSink, error) {
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	var client *azblob.Client
	if cfg.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	} else {
		// no key: fall back to workload or managed identity
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	}

	return newBlobSink(ctx, client, cfg.ServiceContainer, cfg.ServicePrefix)
}

func newBlobSink(ctx context.Context, client *azblob.Client, container, prefix string) (*BlobSink, error) {
	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", container, err)
	}

	return &BlobSink{
		client:    client,
		container: container,
		prefix:    strings.Trim(prefix, "/"),
	}, nil
}

func (bs *BlobSink) blobName(name string) string {
	if bs.prefix == "" {
		return name
	}
	return path.Join(bs.prefix, name)
}

func (bs *BlobSink) Put(ctx context.Context, name string, data []byte) error {
	_, err := bs.client.UploadBuffer(ctx, bs.container, bs.blobName(name), data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", bs.Location(name), err)
	}
	return nil
}

func (bs *BlobSink) Location(name string) string {
	return fmt.Sprintf("blob://%s/%s", bs.container, bs.blobName(name))
}

// MakeSink picks blob storage when Azure credentials are configured and the local
// service data directory otherwise.
func MakeSink(ctx context.Context, cfg *config.Config) (Sink, error) {
	if cfg.Azure.BlobEnabled() {
		slog.InfoContext(ctx, "using Azure Blob Storage for service data", "container", cfg.Azure.ServiceContainer)
		return NewBlobSink(ctx, cfg.Azure)
	}
	return NewFileSink(cfg.Paths.ServiceDataDir), nil
}
