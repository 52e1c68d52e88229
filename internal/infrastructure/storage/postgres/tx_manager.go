package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"txproxy/internal/core/apperror"
	"txproxy/internal/core/tx"
	"txproxy/pkg/logger"
)

var tracer = otel.Tracer("txproxy/tx")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// Beginner starts database transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Querier is the query surface shared by pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration

	// UseSavepoint creates savepoint for nested transactions
	// WARNING: Savepoints are expensive, use only when needed
	UseSavepoint bool
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		StatementTimeout: 30 * time.Second,
		UseSavepoint:     false,
	}
}

// TxManager opens a database transaction at the outermost boundary and
// marks the tracker state for the duration of it. Nested boundaries reuse
// the open transaction, optionally behind a savepoint.
type TxManager struct {
	db   Beginner
	opts TxOptions
}

// NewTxManager creates a new transaction manager on a pool.
func NewTxManager(pool *Pool, opts TxOptions) *TxManager {
	return NewTxManagerFromBeginner(pool.Pool, opts)
}

// NewTxManagerFromBeginner creates a transaction manager on any Beginner.
func NewTxManagerFromBeginner(db Beginner, opts TxOptions) *TxManager {
	return &TxManager{db: db, opts: opts}
}

// txKey is the context key for active transaction.
type txKey struct{}

// Tx wraps pgx.Tx with metadata.
type Tx struct {
	pgx.Tx
	name string
}

// RunInTransaction executes fn within a transaction.
// If a transaction already exists in ctx, it will be reused (nested transaction).
func (m *TxManager) RunInTransaction(ctx context.Context, def tx.Definition, fn func(ctx context.Context) error) error {
	if existing := m.GetTx(ctx); existing != nil && tx.IsActive(ctx) {
		return m.handleNestedTransaction(ctx, existing, def, fn)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("tx.name", def.Name),
			attribute.String("tx.isolation", string(m.opts.IsolationLevel)),
			attribute.Bool("tx.read_only", readOnly(ctx, def)),
		))
	defer span.End()

	return m.startNewTransaction(ctx, def, fn)
}

// readOnly reports the access mode of the connection transaction.
// A boundary already open on ctx, e.g. from another manager, fixes it.
func readOnly(ctx context.Context, def tx.Definition) bool {
	if tx.IsActive(ctx) {
		return tx.IsReadOnly(ctx)
	}
	return def.ReadOnly
}

// startNewTransaction begins a new database transaction.
func (m *TxManager) startNewTransaction(ctx context.Context, def tx.Definition, fn func(ctx context.Context) error) (err error) {
	access := pgx.ReadWrite
	if readOnly(ctx, def) {
		access = pgx.ReadOnly
	}

	dbTx, err := m.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   m.opts.IsolationLevel,
		AccessMode: access,
	})
	if err != nil {
		return apperror.NewTxBegin(def.Name, fmt.Errorf("begin transaction: %w", err))
	}

	// Set statement timeout for protection against runaway queries
	if m.opts.StatementTimeout > 0 {
		_, err = dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.opts.StatementTimeout.Milliseconds()))
		if err != nil {
			_ = dbTx.Rollback(context.Background())
			return apperror.NewTxBegin(def.Name, fmt.Errorf("set statement_timeout: %w", err))
		}
	}

	txCtx, _ := tx.Begin(ctx, def)
	txCtx = context.WithValue(txCtx, txKey{}, &Tx{Tx: dbTx, name: def.Name})
	defer tx.End(txCtx)

	committed := false
	defer func() {
		if committed {
			return
		}
		// Use background context for rollback to ensure it completes
		// even if the original context was cancelled
		if rbErr := dbTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "tx", def.Name, "error", rbErr, "original_error", err)
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}

	if cErr := dbTx.Commit(ctx); cErr != nil {
		committed = true // pgx closes the transaction on failed commit
		return apperror.NewTxCommit(def.Name, fmt.Errorf("commit transaction: %w", cErr))
	}
	committed = true
	return nil
}

// handleNestedTransaction manages nested transaction (reuses or creates savepoint).
func (m *TxManager) handleNestedTransaction(ctx context.Context, existing *Tx, def tx.Definition, fn func(ctx context.Context) error) error {
	txCtx, _ := tx.Begin(ctx, def)
	defer tx.End(txCtx)

	if !m.opts.UseSavepoint {
		return fn(txCtx)
	}

	// Create savepoint for true nested transaction behavior
	savepointName := fmt.Sprintf("sp_%d", tx.Depth(txCtx))
	if _, err := existing.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}

	if err := fn(txCtx); err != nil {
		if _, rbErr := existing.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); rbErr != nil {
			logger.Error(ctx, "rollback to savepoint failed", "savepoint", savepointName, "error", rbErr)
		}
		return err
	}

	if _, err := existing.Exec(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// GetQuerier returns the transaction if one is open in ctx, otherwise the pool.
// This allows repos to work both inside and outside transactions.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil && tx.IsActive(ctx) {
		return t.Tx
	}
	if q, ok := m.db.(Querier); ok {
		return q
	}
	return nil
}
