package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("calling generator", "api_key", "sk-123", "model", "m1", "Authorization", "Bearer x")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["Authorization"])
	assert.Equal(t, "m1", fields["model"])
}

func TestLoggerWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("plan_id", "p1")

	log.Warn("day fell back", "day", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "p1", fields["plan_id"])
	assert.EqualValues(t, 3, fields["day"])
}

func TestNopDoesNotPanic(t *testing.T) {
	log := Nop()
	log.Error("ignored", "odd")
	log.Sync()
}
