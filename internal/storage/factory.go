package storage

import (
	"strings"

	"github.com/timmy/creatorkit/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
//
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
//
// Returns:
//   - *S3Storage: initialized storage client.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *S3Config) (*S3Storage, error) {
	// Auto-detect storage type if not specified
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(cfg)
}

// FromConfig maps the application storage section onto S3Config.
func FromConfig(cfg *config.StorageConfig) *S3Config {
	return &S3Config{
		Type:       StorageType(cfg.Type),
		Endpoint:   cfg.Endpoint,
		AccessKey:  cfg.AccessKey,
		SecretKey:  cfg.SecretKey,
		UseSSL:     cfg.UseSSL,
		Bucket:     cfg.Bucket,
		Region:     cfg.Region,
		PublicURL:  cfg.PublicURL,
		PresignTTL: cfg.PresignTTL,
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
