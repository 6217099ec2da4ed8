package testutil

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("merge complete", slog.Int("rows", 6))
		logger.Error("source failed", slog.String("source", "sales"))

		assert.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("merge complete"))
		assert.True(t, handler.ContainsAttr("source", "sales"))
		assert.False(t, handler.ContainsAttr("source", "indices"))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Warn("warn msg 2")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 2)
		assert.Empty(t, handler.GetRecordsByLevel(slog.LevelError))
		AssertNoErrors(t, handler)
	})

	t.Run("derived loggers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		component := logger.With(slog.String("component", "cache"))

		component.Info("hit")
		logger.WithGroup("merge").Info("done", slog.Int("rows", 3))

		require.Equal(t, 2, handler.Count())
		AssertLogAttr(t, handler, "component", "cache")
		assert.True(t, handler.ContainsAttr("merge.rows", int64(3)))
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Info("x")
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestExtractFixtures(t *testing.T) {
	fsys := ExtractFS()
	require.Len(t, fsys, 3)

	data := string(fsys[PropertyTypeFile].Data)
	assert.True(t, strings.HasPrefix(data, "Date,Region_Name,Area_Code,"))
	assert.Nil(t, ExtractContent("unknown.csv"))

	dir := WriteExtracts(t)
	assert.DirExists(t, dir)
	assert.FileExists(t, dir+"/"+SalesFile)
}
