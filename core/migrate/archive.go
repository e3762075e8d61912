package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"webdesk/core/database"

	"gorm.io/gorm"
)

// BackupArchiver stores a stream produced by write under key.
type BackupArchiver interface {
	Archive(ctx context.Context, key string, write func(w io.Writer) error) error
}

// ArchiveKey is the object key a backup table is archived under.
func ArchiveKey(runID, table string) string {
	return fmt.Sprintf("migrations/%s/%s.jsonl", runID, table)
}

// archiveBackup streams the rows of a backup table as JSON lines.
func (e *Executor) archiveBackup(ctx context.Context, tx *gorm.DB, runID, table string) (string, error) {
	key := ArchiveKey(runID, table)
	backup := database.BackupTableName(table)
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ? OFFSET ?", database.Quote(tx, backup))
	chunk := e.cfg.chunkSize()

	err := e.archiver.Archive(ctx, key, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for offset := 0; ; offset += chunk {
			var rows []Row
			if err := tx.Raw(query, chunk, offset).Scan(&rows).Error; err != nil {
				return err
			}
			for _, row := range rows {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			if len(rows) < chunk {
				return nil
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive backup of %s: %w", table, err)
	}
	return key, nil
}
