package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a blob backend.
//
//	CATALOGENUM_BLOB_DRIVER: fs|s3|memory (default fs)
//	CATALOGENUM_BLOB_FS_ROOT: directory root when driver=fs (default .)
//	(S3 specific variables documented in internal/infra/blob/s3)
type Config struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// Open selects a Store implementation from cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
