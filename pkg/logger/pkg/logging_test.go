package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevels(t *testing.T) {
	l, err := NewLogger(Config{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger(Config{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))

	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, context.Background(), WithRequestID(context.Background(), ""))
	assert.NotNil(t, Logger(ctx))
	assert.NotNil(t, Logger(nil))
}
