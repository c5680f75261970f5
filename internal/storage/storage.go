package storage

import (
	"errors"
	"fmt"

	"qms-exporter/internal/config"
)

// New builds the provider selected by STORAGE_TYPE.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.StorageType {
	case "", "local":
		return NewLocalProvider(cfg.LocalStoragePath), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required for s3 storage")
		}
		client := NewS3Client(S3Options{
			Region:    cfg.AWSRegion,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
		})
		return NewS3Provider(client, cfg.S3Bucket), nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
}
