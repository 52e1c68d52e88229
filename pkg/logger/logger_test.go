package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "txproxy/internal/core/context"
	"txproxy/internal/core/tx"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWithCore(core), logs
}

func TestFromContext_AddsTraceAndTx(t *testing.T) {
	l, logs := newObserved()
	trace := &appctx.TraceContext{TraceID: "trace-1", RequestID: "req-1"}

	ctx := WithLogger(appctx.WithTrace(context.Background(), trace), l)
	ctx, _ = tx.Begin(ctx, tx.Definition{Name: "svc.Internal"})

	Info(ctx, "inside")
	tx.End(ctx)
	Info(ctx, "after")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	inside := entries[0].ContextMap()
	assert.Equal(t, "trace-1", inside["trace_id"])
	assert.Equal(t, "req-1", inside["request_id"])
	assert.Equal(t, "svc.Internal", inside["tx"])
	assert.EqualValues(t, 1, inside["tx_depth"])

	after := entries[1].ContextMap()
	assert.NotContains(t, after, "tx")
	assert.NotContains(t, after, "tx_depth")
}

func TestWithComponent(t *testing.T) {
	l, logs := newObserved()
	l.WithComponent("proxy").Infow("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "proxy", logs.All()[0].ContextMap()["component"])
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "nope", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
}
