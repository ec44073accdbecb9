package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    zap.AtomicLevel
		wantErr bool
	}{
		"debug":   {in: "debug", want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		"default": {in: "", want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		"upper":   {in: "WARN", want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		"error":   {in: "error", want: zap.NewAtomicLevelAt(zap.ErrorLevel)},
		"unknown": {in: "verbose", wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want.Level(), got)
		})
	}
}

func TestNew(t *testing.T) {
	for _, dev := range []bool{true, false} {
		logger, err := New("warn", dev)
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zap.InfoLevel))
		assert.True(t, logger.Core().Enabled(zap.WarnLevel))
	}

	_, err := New("loud", false)
	assert.Error(t, err)
}
