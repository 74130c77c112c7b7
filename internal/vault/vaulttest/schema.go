// Package vaulttest builds throwaway vault schemas for tests.
package vaulttest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vaultload/internal/vault/domain"
	"gorm.io/gorm"
)

// DDL returns a CREATE TABLE statement with a unique constraint on the
// definition's conflict columns. All columns are TEXT.
func DDL(def domain.Definition) string {
	cols := make([]string, 0, len(def.Columns()))
	for _, col := range def.Columns() {
		cols = append(cols, col+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s, UNIQUE (%s))",
		def.Table,
		strings.Join(cols, ", "),
		strings.Join(def.ConflictColumns(), ", "),
	)
}

// OpenDB returns an in-memory sqlite database private to the test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// CreateSchema creates a table for each definition.
func CreateSchema(t *testing.T, conn *gorm.DB, defs []domain.Definition) {
	t.Helper()
	for _, def := range defs {
		if err := conn.Exec(DDL(def)).Error; err != nil {
			t.Fatalf("create %s: %v", def.Table, err)
		}
	}
}
