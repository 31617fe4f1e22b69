package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToFields(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		name string
		in   []any
		keys []string
	}{
		{name: "empty", in: nil, keys: nil},
		{name: "pairs", in: []any{"slot", "F1-A", "count", 3}, keys: []string{"slot", "count"}},
		{name: "bare error", in: []any{err, "slot", "F1-A"}, keys: []string{"error", "slot"}},
		{name: "named error", in: []any{"cause", err}, keys: []string{"cause"}},
		{name: "zap field", in: []any{zap.String("x", "y")}, keys: []string{"x"}},
		{name: "odd args", in: []any{"a", 1, "dangling"}, keys: []string{"a", "arg#2"}},
		{name: "non-string key", in: []any{42, "v"}, keys: []string{"invalid_key_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.in...)
			got := make([]string, 0, len(fields))
			for _, f := range fields {
				got = append(got, f.Key)
			}
			if tt.keys == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.keys, got)
		})
	}
}

func TestZapLogger_WritesStructuredEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core)).WithName("reclaimer").WithValues("sweep", 7)

	logger.Info("expired hold", "holdId", "h-1")
	logger.Error(errors.New("tx failed"), "expire hold failed", "holdId", "h-2")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "reclaimer", entries[0].LoggerName)
	assert.Equal(t, "h-1", entries[0].ContextMap()["holdId"])
	assert.EqualValues(t, 7, entries[0].ContextMap()["sweep"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "tx failed", entries[1].ContextMap()["error"])
}

func TestOptions_Validate(t *testing.T) {
	opts := NewOptions()
	assert.Empty(t, opts.Validate())

	opts.Level = "loud"
	opts.Format = "xml"
	assert.Len(t, opts.Validate(), 2)
}

func TestNew(t *testing.T) {
	opts := NewOptions()
	opts.Format = "json"
	opts.OutputPaths = []string{"stderr"}

	logger, err := New(opts)
	require.NoError(t, err)
	assert.NotNil(t, logger.Logr().GetSink())

	opts.Level = "nope"
	_, err = New(opts)
	assert.Error(t, err)
}
