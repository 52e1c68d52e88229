package tx

import (
	"context"
	"sync/atomic"
)

// stateKey is the context key for the open boundary.
type stateKey struct{}

// State tracks the boundary attached to one call chain.
// Depth counts the nested Begin calls that have not been ended yet.
type State struct {
	name     string
	readOnly bool
	depth    atomic.Int32
}

// Snapshot is a point-in-time copy of State, safe to log or serialize.
type Snapshot struct {
	Active   bool   `json:"active"`
	ReadOnly bool   `json:"read_only"`
	Depth    int    `json:"depth"`
	Name     string `json:"name,omitempty"`
}

// Begin opens a boundary on ctx.
// If ctx carries no open boundary, a new State at depth 1 is attached and
// outermost is true. Otherwise the existing State is reused: its depth is
// incremented and ctx is returned unchanged, keeping the outer attributes.
func Begin(ctx context.Context, def Definition) (_ context.Context, outermost bool) {
	if st := stateFrom(ctx); st != nil && st.depth.Load() > 0 {
		st.depth.Add(1)
		return ctx, false
	}

	st := &State{name: def.Name, readOnly: def.ReadOnly}
	st.depth.Store(1)
	return context.WithValue(ctx, stateKey{}, st), true
}

// End closes the innermost boundary on ctx.
// The active flag clears when depth reaches zero. Unbalanced calls are no-ops.
func End(ctx context.Context) {
	st := stateFrom(ctx)
	if st == nil {
		return
	}
	for {
		d := st.depth.Load()
		if d <= 0 {
			return
		}
		if st.depth.CompareAndSwap(d, d-1) {
			return
		}
	}
}

// IsActive reports whether a boundary is open on ctx.
func IsActive(ctx context.Context) bool {
	return Depth(ctx) > 0
}

// IsReadOnly reports whether the open boundary is read-only.
func IsReadOnly(ctx context.Context) bool {
	st := stateFrom(ctx)
	return st != nil && st.depth.Load() > 0 && st.readOnly
}

// Depth returns the nesting depth of the open boundary, 0 if none.
func Depth(ctx context.Context) int {
	if st := stateFrom(ctx); st != nil {
		return int(st.depth.Load())
	}
	return 0
}

// Current returns a snapshot of the boundary state on ctx.
func Current(ctx context.Context) Snapshot {
	st := stateFrom(ctx)
	if st == nil {
		return Snapshot{}
	}
	d := int(st.depth.Load())
	if d <= 0 {
		return Snapshot{}
	}
	return Snapshot{
		Active:   true,
		ReadOnly: st.readOnly,
		Depth:    d,
		Name:     st.name,
	}
}

func stateFrom(ctx context.Context) *State {
	if st, ok := ctx.Value(stateKey{}).(*State); ok {
		return st
	}
	return nil
}
