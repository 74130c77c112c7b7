package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/vaultload/internal/observability/context"
	"github.com/smallbiznis/vaultload/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsRunFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")
	ctx = obscontext.WithRunID(ctx, "run-7")
	ctx = obscontext.WithFileID(ctx, "20240305.csv")

	WithContext(ctx, base).Info("loaded")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "cid-1", fields["correlation_id"])
	assert.Equal(t, "run-7", fields["run_id"])
	assert.Equal(t, "20240305.csv", fields["file_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestWithContextWithoutFields(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: time.Millisecond,
	})

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO `hub_customers` (`customerid`) VALUES (?) ON CONFLICT (`customerid`) DO NOTHING", 1
	}, errors.New("boom"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "INSERT", entry.ContextMap()["operation"])
	assert.Equal(t, "hub_customers", entry.ContextMap()["db_table"])
	assert.Equal(t, "gorm", entry.ContextMap()["component"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("ignored"))
	assert.Equal(t, 1, logs.Len())
}

func TestGormLoggerTraceLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        100 * time.Millisecond,
		IgnoreRecordNotFound: true,
	})
	fc := func() (string, int64) { return "SELECT * FROM `processed_files` WHERE file_id = ?", 0 }

	gl.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	gl.Trace(context.Background(), time.Now(), fc, nil)
	assert.Zero(t, logs.Len(), "fast statements and missing records stay quiet at warn")

	gl.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "processed_files", logs.All()[0].ContextMap()["db_table"])

	gl.LogMode(gormlogger.Info).Trace(context.Background(), time.Now(), fc, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
}

func TestGormLoggerMessages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), GormLoggerConfig{Level: gormlogger.Warn})

	gl.Info(context.Background(), "dropped", 1)
	gl.Warn(context.Background(), "slow pool", 2)
	gl.Error(context.Background(), "lost connection")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "slow pool", logs.All()[0].Message)
	assert.Contains(t, logs.All()[0].ContextMap(), "data")
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
	assert.NotContains(t, logs.All()[1].ContextMap(), "data")
}

func TestGormLoggerParamsFilter(t *testing.T) {
	gl := NewGormLogger(nil, DefaultGormLoggerConfig())
	sql, params := gl.ParamsFilter(context.Background(), "INSERT INTO sat_customer VALUES (?)", "ann@example.com")
	assert.Equal(t, "INSERT INTO sat_customer VALUES (?)", sql)
	assert.Nil(t, params)
}

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{"INSERT INTO `sat_location` (`locationid`) VALUES (?)", "INSERT", "sat_location"},
		{`SELECT count(*) FROM "hub_titles"`, "SELECT", "hub_titles"},
		{"CREATE TABLE IF NOT EXISTS link_employeetitle (employeeid TEXT)", "CREATE", "link_employeetitle"},
		{"DROP TABLE IF EXISTS sat_track", "DROP", "sat_track"},
		{"UPDATE processed_files SET checksum = ?", "UPDATE", "processed_files"},
		{"SELECT 1", "SELECT", ""},
		{"PRAGMA foreign_keys = ON", "PRAGMA", ""},
		{"", "UNKNOWN", ""},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.op, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}
