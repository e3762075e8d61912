// Package storage archives migration backups to S3-compatible object storage.
//
// It wraps the MinIO Go client behind the Client interface so the archiver
// can be tested against core/storage/mocks. Backups are streamed through an
// io.Pipe into PutObject as JSON lines under migrations/<run id>/<table>.jsonl.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	archiver := storage.NewArchiver(client, cfg.Storage.Bucket, logger)
//	err = archiver.EnsureBucket(ctx)
package storage
