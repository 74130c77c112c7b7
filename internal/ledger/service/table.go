package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"github.com/smallbiznis/vaultload/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TableLedger stores processed files in processed_files. The unique index on
// file_id makes marking an atomic check-and-set across concurrent runs.
type TableLedger struct {
	db    *gorm.DB
	repo  repository.Repository[ledgerdomain.ProcessedFile]
	genID *snowflake.Node
	log   *zap.Logger
}

func NewTableLedger(db *gorm.DB, genID *snowflake.Node, log *zap.Logger) (*TableLedger, error) {
	if db == nil {
		return nil, ledgerdomain.ErrBackendUnconfigured
	}
	if genID == nil {
		return nil, errors.New("snowflake node is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TableLedger{
		db:    db,
		repo:  repository.ProvideStore[ledgerdomain.ProcessedFile](db),
		genID: genID,
		log:   log.Named("ledger.table"),
	}, nil
}

var _ ledgerdomain.Ledger = (*TableLedger)(nil)

// EnsureSchema creates processed_files when missing.
func (l *TableLedger) EnsureSchema(ctx context.Context) error {
	return l.db.WithContext(ctx).AutoMigrate(&ledgerdomain.ProcessedFile{})
}

func (l *TableLedger) IsProcessed(ctx context.Context, fileID string) (bool, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return false, ledgerdomain.ErrEmptyFileID
	}
	row, err := l.repo.FindOne(ctx, &ledgerdomain.ProcessedFile{FileID: fileID})
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (l *TableLedger) MarkProcessed(ctx context.Context, entry ledgerdomain.Entry) error {
	fileID := strings.TrimSpace(entry.FileID)
	if fileID == "" {
		return ledgerdomain.ErrEmptyFileID
	}
	processedAt := entry.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	row := &ledgerdomain.ProcessedFile{
		ID:          l.genID.Generate(),
		FileID:      fileID,
		Checksum:    entry.Checksum,
		RowCount:    entry.Rows,
		Summary:     datatypes.JSONMap(entry.Summary),
		ProcessedAt: processedAt.UTC(),
	}
	inserted, err := l.repo.CreateIgnoreConflict(ctx, row, "file_id")
	if err != nil {
		return err
	}
	if inserted == 0 {
		l.log.Info("file already marked processed", zap.String("file_id", fileID))
	}
	return nil
}
