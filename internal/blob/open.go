package blob

import (
	"context"
	"fmt"

	"github.com/abduss/foldershare/internal/config"
)

// Backend is a Store that can also report its health.
type Backend interface {
	Store
	Ping(ctx context.Context) error
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.BlobConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BlobBackendMinIO:
		client, err := NewMinIOClient(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		if err := EnsureBucket(ctx, client, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			return nil, err
		}
		return NewMinIOStore(client, cfg.MinIO.Bucket), nil
	case config.BlobBackendS3:
		return NewS3Store(ctx, cfg.S3)
	case config.BlobBackendDisk:
		return NewDiskStore(cfg.DiskDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
