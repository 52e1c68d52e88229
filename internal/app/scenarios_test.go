package app

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txproxy/internal/config"
	"txproxy/internal/core/apperror"
	"txproxy/internal/core/proxy"
	"txproxy/internal/domain/calls"
)

func observation(t *testing.T, r Report, method string) calls.Observation {
	t.Helper()
	for _, o := range r.Observations {
		if o.Method == method {
			return o
		}
	}
	t.Fatalf("no observation for %s in %+v", method, r.Observations)
	return calls.Observation{}
}

func TestRunner_Scenarios(t *testing.T) {
	runner := NewRunner(config.Config{}, nil)
	ctx := context.Background()

	t.Run("self-invocation", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioSelfInvocation)
		require.NoError(t, err)
		assert.False(t, observation(t, r, "External").TxActive)
		assert.False(t, observation(t, r, "Internal").TxActive)
		assert.False(t, r.ActiveAfter)
	})

	t.Run("direct-call", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioDirectCall)
		require.NoError(t, err)
		assert.True(t, observation(t, r, "Internal").TxActive)
	})

	t.Run("delegation", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioDelegation)
		require.NoError(t, err)
		assert.False(t, observation(t, r, "External").TxActive)
		internal := observation(t, r, "Internal")
		assert.True(t, internal.TxActive)
		assert.Equal(t, "internalService.Internal", internal.TxName)
	})

	t.Run("nested", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioNested)
		require.NoError(t, err)
		require.Len(t, r.Observations, 3)
		assert.Equal(t, 2, observation(t, r, "Internal").Depth)
		assert.True(t, r.Observations[2].TxActive)
		assert.Equal(t, 1, r.Observations[2].Depth)
		assert.False(t, r.ActiveAfter)
	})

	t.Run("failure", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioFailure)
		require.NoError(t, err)
		assert.Equal(t, calls.ErrRejected.Error(), r.Error)
		assert.True(t, observation(t, r, "Reject").TxActive)
		assert.False(t, r.ActiveAfter)
	})

	t.Run("read-only", func(t *testing.T) {
		r, err := runner.Run(ctx, ScenarioReadOnly)
		require.NoError(t, err)
		snap := observation(t, r, "Snapshot")
		assert.True(t, snap.TxActive)
		assert.True(t, snap.ReadOnly)
	})
}

func TestRunner_UnknownScenario(t *testing.T) {
	_, err := NewRunner(config.Config{}, nil).Run(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRunner_ConcurrentRunsAreIndependent(t *testing.T) {
	runner := NewRunner(config.Config{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := ScenarioSelfInvocation
			want := false
			if i%2 == 0 {
				name, want = ScenarioDelegation, true
			}
			r, err := runner.Run(context.Background(), name)
			assert.NoError(t, err)
			assert.Len(t, r.Observations, 2)
			assert.Equal(t, want, r.Observations[1].TxActive)
		}(i)
	}
	wg.Wait()
}

func TestScenarios_Sorted(t *testing.T) {
	assert.Equal(t, []string{
		ScenarioDelegation, ScenarioDirectCall, ScenarioFailure,
		ScenarioNested, ScenarioReadOnly, ScenarioSelfInvocation,
	}, Scenarios())
}

func TestNew_RejectsUnknownMethod(t *testing.T) {
	cfg := config.Config{Targets: map[string]config.Target{
		config.TargetCallService: {Methods: proxy.Table{"Missing": proxy.Transactional}},
	}}
	_, err := New(Options{Config: cfg})
	require.Error(t, err)
	assert.True(t, apperror.IsUnknownMethod(err))
}

func TestNew_CustomConfigMarksExternal(t *testing.T) {
	// Marking External makes the self-call run inside the outer boundary.
	cfg := config.Defaults()
	cfg.Targets[config.TargetCallService] = config.Target{
		Methods: proxy.Table{"External": proxy.Transactional, "Internal": proxy.Transactional},
	}
	r, err := NewRunner(cfg, nil).Run(context.Background(), ScenarioSelfInvocation)
	require.NoError(t, err)
	assert.True(t, observation(t, r, "Internal").TxActive)
	assert.Equal(t, "callService.External", observation(t, r, "Internal").TxName)
}

func TestNew_ExplicitEmptyConfigMarksNothing(t *testing.T) {
	cfg := config.Config{Targets: map[string]config.Target{}}

	c, err := New(Options{Config: cfg})
	require.NoError(t, err)
	assert.Empty(t, c.Config.Targets)

	r, err := NewRunner(cfg, nil).Run(context.Background(), ScenarioDirectCall)
	require.NoError(t, err)
	assert.False(t, observation(t, r, "Internal").TxActive)
}
