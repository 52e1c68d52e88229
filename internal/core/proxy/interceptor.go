package proxy

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"txproxy/internal/core/tx"
	"txproxy/pkg/logger"
)

var tracer = otel.Tracer("txproxy/proxy")

// Interceptor decides, per call, whether a call on its target crosses a
// transaction boundary. It wraps exactly one target and keeps no state
// between calls.
type Interceptor struct {
	target  string
	source  Source
	manager tx.Manager
}

// New creates an interceptor for the named target.
// A nil source marks nothing; a nil manager falls back to tx.LocalManager.
func New(target string, source Source, manager tx.Manager) *Interceptor {
	if source == nil {
		source = Table{}
	}
	if manager == nil {
		manager = tx.NewLocalManager()
	}
	return &Interceptor{target: target, source: source, manager: manager}
}

// Target returns the name of the wrapped target.
func (i *Interceptor) Target() string {
	return i.target
}

// Attribute returns the resolved marking of method.
func (i *Interceptor) Attribute(ctx context.Context, method string) Attribute {
	attr, _ := i.source.Lookup(ctx, i.target, method)
	return attr
}

// Invoke runs call as the body of method.
// Unmarked methods run directly. Transactional methods run inside
// manager.RunInTransaction, which joins any boundary already open on ctx.
// The error returned by call is passed through untouched.
func (i *Interceptor) Invoke(ctx context.Context, method string, call func(ctx context.Context) error) error {
	attr := i.Attribute(ctx, method)
	if !attr.Transactional {
		return call(ctx)
	}

	def := tx.Definition{Name: i.target + "." + method, ReadOnly: attr.ReadOnly}

	ctx, span := tracer.Start(ctx, def.Name,
		trace.WithAttributes(
			attribute.String("proxy.target", i.target),
			attribute.String("proxy.method", method),
			attribute.Bool("tx.read_only", def.ReadOnly),
			attribute.Bool("tx.joined", tx.IsActive(ctx)),
		))
	defer span.End()

	logger.Debug(ctx, "transaction boundary enter", "boundary", def.Name, "joined", tx.IsActive(ctx))

	err := i.manager.RunInTransaction(ctx, def, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	logger.Debug(ctx, "transaction boundary exit", "boundary", def.Name, "error", err)
	return err
}

// Call is Invoke for methods returning a value.
func Call[R any](ctx context.Context, i *Interceptor, method string, fn func(ctx context.Context) (R, error)) (R, error) {
	var out R
	err := i.Invoke(ctx, method, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
