package database

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	l := migrateLogger{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	l.Printf("Start buffering %d/u %s\n", 5, "change_notify")

	assert.Contains(t, buf.String(), "migrate: Start buffering 5/u change_notify")
	assert.False(t, l.Verbose())

	debug := migrateLogger{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	assert.True(t, debug.Verbose())
}
