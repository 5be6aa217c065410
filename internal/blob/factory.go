package blob

import (
	"context"
	"fmt"

	"genecatalog/internal/infra/blob/fs"
	"genecatalog/internal/infra/blob/memory"
	"genecatalog/internal/infra/blob/s3"
)

// Config selects and parameterizes a blob driver. internal/config fills it
// from GENECATALOG_BLOB_* variables.
type Config struct {
	Driver      Driver
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open selects a Store implementation for cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("GENECATALOG_BLOB_S3_BUCKET required for s3 driver")
		}
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
