package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gemini-media-mcp/internal/transfer"
)

// S3Storage keeps artifacts in an S3/MinIO bucket with date-organized keys,
// presigned download URLs, and a TTL-based background sweep.
type S3Storage struct {
	client          *minio.Client
	bucket          string
	tempDir         string
	presignTTL      time.Duration
	objectTTL       time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
	TempDir         string
	PresignTTL      time.Duration
	ObjectTTL       time.Duration
	CleanupInterval time.Duration
}

// parseEndpoint extracts host:port from an endpoint that may carry a scheme,
// letting the scheme override the configured SSL flag.
func parseEndpoint(endpoint string, defaultUseSSL bool) (host string, useSSL bool) {
	useSSL = defaultUseSSL
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" {
		useSSL = parsed.Scheme == "https"
		host = parsed.Host
		if host == "" {
			host = endpoint
		}
	} else {
		host = endpoint
	}
	return host, useSSL
}

func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	endpoint, useSSL := parseEndpoint(cfg.Endpoint, cfg.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Printf("Bucket %s does not exist, creating...", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	s := &S3Storage{
		client:          client,
		bucket:          cfg.Bucket,
		tempDir:         cfg.TempDir,
		presignTTL:      cfg.PresignTTL,
		objectTTL:       cfg.ObjectTTL,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}
	go s.runCleanup()
	return s, nil
}

func (s *S3Storage) Store(ctx context.Context, data []byte, mimeType string, prefix string) (*Result, error) {
	now := time.Now().UTC()
	filename := transfer.UniqueName(prefix, extensionForMIME(mimeType))
	objectKey := fmt.Sprintf("%s/%s", now.Format("2006/01/02"), filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.presignTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	expiresAt := now.Add(s.presignTTL)
	return &Result{
		Location:  presignedURL.String(),
		ObjectKey: objectKey,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		ExpiresAt: &expiresAt,
	}, nil
}

// Retrieve downloads the object into the temp directory; the returned
// cleanup removes the local copy.
func (s *S3Storage) Retrieve(ctx context.Context, objectKey string) (string, func(), error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch %s: %w", objectKey, err)
	}
	defer obj.Close()

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	path := filepath.Join(s.tempDir, transfer.UniqueName("s3", filepath.Ext(objectKey)))
	out, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, obj); err != nil {
		out.Close()
		transfer.Remove(path)
		return "", nil, fmt.Errorf("failed to download %s: %w", objectKey, err)
	}
	if err := out.Close(); err != nil {
		transfer.Remove(path)
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, func() { transfer.Remove(path) }, nil
}

func (s *S3Storage) Delete(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) Close() error {
	close(s.stopCleanup)
	return nil
}

func (s *S3Storage) IsRemote() bool { return true }

// runCleanup sweeps expired objects at a fixed interval until Close.
func (s *S3Storage) runCleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	log.Printf("S3 cleanup routine started (interval: %v, TTL: %v)", s.cleanupInterval, s.objectTTL)
	for {
		select {
		case <-ticker.C:
			s.sweepExpired()
		case <-s.stopCleanup:
			log.Println("S3 cleanup routine stopped")
			return
		}
	}
}

func (s *S3Storage) sweepExpired() {
	ctx := context.Background()
	now := time.Now().UTC()
	deleted, failed := 0, 0

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			log.Printf("Error listing objects: %v", object.Err)
			failed++
			continue
		}
		if now.Sub(object.LastModified) <= s.objectTTL {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			log.Printf("Failed to delete expired object %s: %v", object.Key, err)
			failed++
		} else {
			deleted++
		}
	}
	if deleted > 0 || failed > 0 {
		log.Printf("S3 cleanup completed: deleted %d objects, %d errors", deleted, failed)
	}
}
