package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"github.com/smallbiznis/vaultload/internal/vault/loader"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 500

// Store writes record sets through gorm. Each call runs in its own transaction.
type Store struct {
	db        *gorm.DB
	batchSize int
}

func NewStore(db *gorm.DB, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{db: db, batchSize: batchSize}
}

var _ loader.Store = (*Store)(nil)

func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	migrator := s.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(table) {
		return nil, nil
	}
	types, err := migrator.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("column types %s: %w", table, err)
	}
	cols := make([]string, 0, len(types))
	for _, ct := range types {
		cols = append(cols, ct.Name())
	}
	return cols, nil
}

func (s *Store) InsertSkipConflict(ctx context.Context, table string, conflict []string, rows []domain.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	onConflict := clause.OnConflict{DoNothing: true}
	for _, col := range conflict {
		onConflict.Columns = append(onConflict.Columns, clause.Column{Name: col})
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += s.batchSize {
			end := start + s.batchSize
			if end > len(rows) {
				end = len(rows)
			}
			chunk := make([]map[string]interface{}, 0, end-start)
			// gorm writes the generated id back into each map, so the
			// caller's rows are copied.
			for _, r := range rows[start:end] {
				m := make(map[string]interface{}, len(r))
				for k, v := range r {
					m[k] = v
				}
				chunk = append(chunk, m)
			}

			res := tx.Table(table).Clauses(onConflict).Create(&chunk)
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Table(table).Count(&n).Error
	return n, err
}
