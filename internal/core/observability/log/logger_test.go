package log

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithZap(zap.New(core), level), logs
}

func TestLevelFiltering(t *testing.T) {
	l, logs := observed(LevelInfo)

	l.Debug("hidden")
	l.Info("shown")
	l.Warn("also shown")
	assert.Equal(t, 2, logs.Len())

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
	l.Debug("now shown")
	assert.Equal(t, 3, logs.Len())
}

func TestFieldsAreTyped(t *testing.T) {
	l, logs := observed(LevelDebug)

	l.With(String("agent", "alpha")).Info("fired",
		Vec3("muzzle", mgl64.Vec3{1, 2, 3}),
		Float64("alignment", 0.99),
		Uint64("projectile", 7),
		Error(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "alpha", ctx["agent"])
	assert.Equal(t, []any{1.0, 2.0, 3.0}, ctx["muzzle"])
	assert.Equal(t, 0.99, ctx["alignment"])
	assert.Equal(t, uint64(7), ctx["projectile"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNopAndProvide(t *testing.T) {
	n := Nop()
	n.Info("ignored")
	assert.NotNil(t, Provide())
}
