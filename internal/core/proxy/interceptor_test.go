package proxy

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txproxy/internal/core/apperror"
	"txproxy/internal/core/tx"
)

// countingManager wraps LocalManager and counts boundary requests.
type countingManager struct {
	tx.LocalManager
	calls []tx.Definition
}

func (m *countingManager) RunInTransaction(ctx context.Context, def tx.Definition, fn func(ctx context.Context) error) error {
	m.calls = append(m.calls, def)
	return m.LocalManager.RunInTransaction(ctx, def, fn)
}

func TestInvoke_TransactionalOpensBoundary(t *testing.T) {
	m := &countingManager{}
	ic := New("svc", Table{"Internal": Transactional}, m)
	ctx := context.Background()

	var active bool
	err := ic.Invoke(ctx, "Internal", func(ctx context.Context) error {
		active = tx.IsActive(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, active)
	assert.False(t, tx.IsActive(ctx))
	require.Len(t, m.calls, 1)
	assert.Equal(t, tx.Definition{Name: "svc.Internal"}, m.calls[0])
}

func TestInvoke_NotTransactionalRunsDirectly(t *testing.T) {
	m := &countingManager{}
	ic := New("svc", Table{"Internal": Transactional, "Plain": {}}, m)

	for _, method := range []string{"External", "Plain"} {
		var active bool
		err := ic.Invoke(context.Background(), method, func(ctx context.Context) error {
			active = tx.IsActive(ctx)
			return nil
		})
		require.NoError(t, err)
		assert.False(t, active, method)
	}
	assert.Empty(t, m.calls)
}

func TestInvoke_NestedBalances(t *testing.T) {
	ic := New("svc", Table{"Outer": Transactional, "Inner": ReadOnly}, nil)
	ctx := context.Background()

	var depths []int
	var innerReadOnly bool
	err := ic.Invoke(ctx, "Outer", func(ctx context.Context) error {
		depths = append(depths, tx.Depth(ctx))
		err := ic.Invoke(ctx, "Inner", func(ctx context.Context) error {
			depths = append(depths, tx.Depth(ctx))
			innerReadOnly = tx.IsReadOnly(ctx)
			return nil
		})
		depths = append(depths, tx.Depth(ctx))
		assert.True(t, tx.IsActive(ctx))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 1}, depths)
	// the inner call joins the outer read-write boundary
	assert.False(t, innerReadOnly)
	assert.False(t, tx.IsActive(ctx))
}

func TestInvoke_FailurePropagatesUnchanged(t *testing.T) {
	ic := New("svc", Table{"Internal": Transactional}, nil)
	boom := errors.New("boom")

	var inner context.Context
	err := ic.Invoke(context.Background(), "Internal", func(ctx context.Context) error {
		inner = ctx
		return boom
	})
	assert.Same(t, boom, err)
	assert.False(t, tx.IsActive(inner))
}

func TestInvoke_NestedFailureClearsOuter(t *testing.T) {
	ic := New("svc", Table{"Outer": Transactional, "Inner": Transactional}, nil)
	boom := errors.New("boom")

	var outerCtx context.Context
	err := ic.Invoke(context.Background(), "Outer", func(ctx context.Context) error {
		outerCtx = ctx
		return ic.Invoke(ctx, "Inner", func(context.Context) error {
			return fmt.Errorf("inner: %w", boom)
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, tx.Depth(outerCtx))
}

func TestCall_ReturnsValue(t *testing.T) {
	ic := New("svc", Table{"Get": ReadOnly}, nil)

	got, err := Call(context.Background(), ic, "Get", func(ctx context.Context) (tx.Snapshot, error) {
		return tx.Current(ctx), nil
	})
	require.NoError(t, err)
	assert.Equal(t, tx.Snapshot{Active: true, ReadOnly: true, Depth: 1, Name: "svc.Get"}, got)
}

func TestSources_FirstMatchWins(t *testing.T) {
	src := Sources(Table{"A": ReadOnly}, nil, Table{"A": Transactional, "B": Transactional})

	attr, ok := src.Lookup(context.Background(), "svc", "A")
	require.True(t, ok)
	assert.Equal(t, ReadOnly, attr)

	attr, ok = src.Lookup(context.Background(), "svc", "B")
	require.True(t, ok)
	assert.Equal(t, Transactional, attr)

	_, ok = src.Lookup(context.Background(), "svc", "C")
	assert.False(t, ok)
}

func TestTable_Validate(t *testing.T) {
	table := Table{"Internal": Transactional}
	assert.NoError(t, table.Validate("svc", "External", "Internal"))

	err := table.Validate("svc", "External")
	require.Error(t, err)
	assert.True(t, apperror.IsUnknownMethod(err))
}
