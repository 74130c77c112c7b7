package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrEmptyFileID         = errors.New("empty_file_id")
	ErrUnsupportedBackend  = errors.New("unsupported_ledger_backend")
	ErrBackendUnconfigured = errors.New("ledger_backend_unconfigured")
)

// Ledger records which source files have been fully loaded.
type Ledger interface {
	IsProcessed(ctx context.Context, fileID string) (bool, error)
	// MarkProcessed is idempotent: marking a file twice keeps one entry.
	MarkProcessed(ctx context.Context, entry Entry) error
}

// Locker guards a file against concurrent pipeline runs.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// Entry describes a completed file load.
type Entry struct {
	FileID      string
	Checksum    string
	Rows        int64
	Summary     map[string]any
	ProcessedAt time.Time
}

// ProcessedFile is the table ledger row.
type ProcessedFile struct {
	ID          snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	FileID      string            `gorm:"type:varchar(255);not null;uniqueIndex:ux_processed_files_file_id"`
	Checksum    string            `gorm:"type:varchar(64)"`
	RowCount    int64             `gorm:"not null;default:0"`
	Summary     datatypes.JSONMap `gorm:"type:json"`
	ProcessedAt time.Time         `gorm:"not null"`
}

func (ProcessedFile) TableName() string { return "processed_files" }
