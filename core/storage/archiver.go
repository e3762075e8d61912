package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ContentType is the media type of archived backups (one JSON object per line).
const ContentType = "application/x-ndjson"

// Archiver streams migration backups into a bucket.
type Archiver struct {
	client Client
	bucket string
	logger *zap.Logger
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(client Client, bucket string, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, logger: logger}
}

// EnsureBucket creates the bucket when it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("Created archive bucket", zap.String("bucket", a.bucket))
	return nil
}

// Archive uploads whatever write produces under key. The upload is streamed,
// write returns only once everything it produced was consumed or the upload failed.
func (a *Archiver) Archive(ctx context.Context, key string, write func(w io.Writer) error) error {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := write(pw)
		pw.CloseWithError(err)
		done <- err
	}()

	info, err := a.client.PutObject(ctx, a.bucket, key, pr, -1, minio.PutObjectOptions{ContentType: ContentType})
	// Unblock the writer if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	writeErr := <-done

	if writeErr != nil && writeErr != io.ErrClosedPipe {
		return fmt.Errorf("failed to produce %s: %w", key, writeErr)
	}
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	a.logger.Info("Archived backup", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int64("bytes", info.Size))
	return nil
}

// List returns the keys archived under prefix.
func (a *Archiver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Remove deletes every object archived under prefix.
func (a *Archiver) Remove(ctx context.Context, prefix string) (int, error) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	keys, err := a.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, key := range keys {
		if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return i, fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return len(keys), nil
}
