package storage

import (
	"fmt"
	"log"

	"gemini-media-mcp/internal/common"
)

// NewStorage picks the backend from configuration: S3 when configured in
// HTTP mode, the local filesystem otherwise.
func NewStorage(config *common.Config) (Storage, error) {
	if config.S3Enabled {
		log.Printf("Initializing S3 storage (endpoint: %s, bucket: %s)", config.S3Endpoint, config.S3Bucket)
		return NewS3Storage(S3Config{
			Endpoint:        config.S3Endpoint,
			AccessKeyID:     config.S3AccessKeyID,
			SecretAccessKey: config.S3SecretAccessKey,
			Region:          config.S3Region,
			Bucket:          config.S3Bucket,
			UseSSL:          config.S3UseSSL,
			TempDir:         config.TempDir(),
			PresignTTL:      config.S3PresignTTL,
			ObjectTTL:       config.S3ObjectTTL,
			CleanupInterval: config.S3CleanupInterval,
		})
	}

	log.Printf("Initializing local storage (directory: %s)", config.OutputDir)
	stor, err := NewLocalStorage(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local storage: %w", err)
	}
	return stor, nil
}
