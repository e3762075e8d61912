package migrate

// Orphaned backup policies.
const (
	OrphanFail    = "fail"
	OrphanResume  = "resume"
	OrphanDiscard = "discard"
)

// DefaultChunkSize is the number of backup rows restored per batch.
const DefaultChunkSize = 1000

// Config holds configuration for the migration engine.
type Config struct {
	// ChunkSize is the number of rows restored per batched insert.
	ChunkSize int `mapstructure:"chunk_size" default:"1000"`
	// ArchiveBackups streams every backup table to object storage before it is dropped.
	ArchiveBackups bool `mapstructure:"archive_backups" default:"false"`
	// OrphanedBackups decides what happens to backup tables left by a crashed run
	// (fail, resume, discard).
	OrphanedBackups string `mapstructure:"orphaned_backups" default:"fail"`
}

// IsValidOrphanPolicy checks if the configured orphan policy is known.
func (c Config) IsValidOrphanPolicy() bool {
	switch c.OrphanedBackups {
	case OrphanFail, OrphanResume, OrphanDiscard:
		return true
	default:
		return false
	}
}

func (c Config) chunkSize() int {
	if c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}
