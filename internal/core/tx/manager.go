// Package tx provides transaction management abstractions.
// This package defines the transaction boundary contract and the per-call-chain
// state that records whether a boundary is currently open.
package tx

import (
	"context"
)

// Definition describes the boundary a caller asks for.
type Definition struct {
	// Name identifies the boundary, usually "target.Method".
	Name string

	// ReadOnly requests a read-only transaction.
	// Ignored when the call joins an already open boundary.
	ReadOnly bool
}

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK and nested transaction support.
//
// Domain code depends on this interface, not concrete implementations.
// The pgx-backed implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a transaction boundary.
	// If fn returns an error, the transaction is rolled back and the error
	// is returned as is. If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing boundary from context.
	RunInTransaction(ctx context.Context, def Definition, fn func(ctx context.Context) error) error
}

// Compile-time check that LocalManager implements Manager interface.
var _ Manager = (*LocalManager)(nil)

// LocalManager opens tracker boundaries without any backing resource.
// It is the default manager for in-process services and tests.
type LocalManager struct{}

// NewLocalManager creates a new in-process transaction manager.
func NewLocalManager() *LocalManager {
	return &LocalManager{}
}

// RunInTransaction executes fn inside a tracker boundary.
// End is deferred so the boundary closes on error and on panic.
func (m *LocalManager) RunInTransaction(ctx context.Context, def Definition, fn func(ctx context.Context) error) error {
	txCtx, _ := Begin(ctx, def)
	defer End(txCtx)

	return fn(txCtx)
}
