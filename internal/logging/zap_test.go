package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		want zapcore.Level
	}{
		{"default", Options{}, zapcore.InfoLevel},
		{"verbose", Options{Verbose: true}, zapcore.DebugLevel},
		{"json", Options{JSON: true}, zapcore.InfoLevel},
		{"verbose json", Options{Verbose: true, JSON: true}, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(tt.want))
			require.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	require.NotNil(t, OrNop(nil))
	logger, err := New(Options{})
	require.NoError(t, err)
	require.Same(t, logger, OrNop(logger))
}
