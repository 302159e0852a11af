package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNamed(t *testing.T) {
	t.Parallel()

	lggr := Test(t).Named("resolver")
	assert.Equal(t, "resolver", lggr.Name())
	assert.Equal(t, "resolver.manifest", lggr.Named("manifest").Name())
}

func TestFilterNoise(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.DebugLevel)
	filtered := FilterNoise(lggr, "tronweb", "bridge noise")

	filtered.Info("tronweb injected into page")
	filtered.Warnw("some bridge noise here", "k", "v")
	filtered.Infow("transaction broadcast", "txID", "abc")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "transaction broadcast", logs.All()[0].Message)
}

func TestFilterNoise_WithKeepsFilter(t *testing.T) {
	t.Parallel()

	lggr, logs := TestObserved(t, zapcore.DebugLevel)
	filtered := FilterNoise(lggr, "noise").With("component", "cli")

	filtered.Info("noise")
	filtered.Info("signal")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "signal", logs.All()[0].Message)
	assert.Equal(t, "cli", logs.All()[0].ContextMap()["component"])
}

func TestFilterNoise_NoSubstrings(t *testing.T) {
	t.Parallel()

	lggr := Nop()
	assert.Same(t, lggr, FilterNoise(lggr))
}

func TestConfig_New(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    Config
		wantErr string
	}{
		{name: "defaults", give: Config{}},
		{name: "console with suppression", give: Config{Level: zapcore.WarnLevel, Format: FormatConsole, Suppress: []string{"noise"}}},
		{name: "json", give: Config{Format: FormatJSON}},
		{name: "unknown format", give: Config{Format: "xml"}, wantErr: `unknown log format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, err := tt.give.New()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, lggr)
		})
	}
}
