package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestNewGormLogger(t *testing.T) {
	l, _ := newObservedLogger()

	gl := NewGormLogger(l, gormlogger.Warn)

	assert.Equal(t, gormlogger.Warn, gl.logLevel)
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.skipNotFoundError)
}

func TestGormLoggerOptions(t *testing.T) {
	l, _ := newObservedLogger()

	gl := NewGormLogger(l, gormlogger.Info,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, time.Second, gl.slowThreshold)
	assert.False(t, gl.skipNotFoundError)
}

func TestGormLoggerLogMode(t *testing.T) {
	l, _ := newObservedLogger()
	gl := NewGormLogger(l, gormlogger.Warn)

	quiet := gl.LogMode(gormlogger.Silent)

	assert.Equal(t, gormlogger.Silent, quiet.(*GormLogger).logLevel)
	assert.Equal(t, gormlogger.Warn, gl.logLevel, "original logger keeps its level")
}

func TestGormLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("messages below the configured level are dropped", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Error)

		gl.Info(ctx, "migration step %d", 1)
		gl.Warn(ctx, "connection pool at %d%%", 90)
		assert.Equal(t, 0, logs.Len())

		gl.Error(ctx, "connect failed: %s", "refused")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "connect failed: refused", logs.All()[0].Message)
	})

	t.Run("info level passes everything", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Info)

		gl.Info(ctx, "step one")
		gl.Warn(ctx, "step two")
		gl.Error(ctx, "step three")
		assert.Equal(t, 3, logs.Len())
	})
}

func TestGormLoggerTrace(t *testing.T) {
	query := func() (string, int64) {
		return `SELECT * FROM "ledger_entries" WHERE account_id = $1`, 3
	}

	t.Run("failed query logs at error with the statement", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, assert.AnError)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "query failed", entry.Message)
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)

		fields := entry.ContextMap()
		assert.Contains(t, fields["sql"], "ledger_entries")
		assert.Equal(t, int64(3), fields["rows"])
		assert.Contains(t, fields, "error")
	})

	t.Run("record not found is skipped by default", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("record not found is logged when configured", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Error, WithIgnoreRecordNotFoundError(false))

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "query failed", logs.All()[0].Message)
	})

	t.Run("slow query logs at warn with the threshold", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "slow query", entry.Message)
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Contains(t, entry.ContextMap(), "threshold")
	})

	t.Run("fast query at info level logs at debug", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Info)

		gl.Trace(context.Background(), time.Now(), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "query", logs.All()[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("silent level logs nothing", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Silent)

		gl.Trace(context.Background(), time.Now().Add(-time.Minute), query, assert.AnError)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("request ID from the context is attached", func(t *testing.T) {
		l, logs := newObservedLogger()
		gl := NewGormLogger(l, gormlogger.Info)

		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-sql-7")
		gl.Trace(ctx, time.Now(), query, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-sql-7", logs.All()[0].ContextMap()["request_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.input))
		})
	}
}
