package calls

import (
	"context"

	"txproxy/internal/core/proxy"
	"txproxy/pkg/logger"
)

// CallService has a non-transactional External that calls its own
// transactional Internal.
type CallService interface {
	External(ctx context.Context) error
	Internal(ctx context.Context) error
}

// CallServiceMethods lists the methods a CallService proxy routes.
var CallServiceMethods = []string{"External", "Internal"}

type callService struct {
	journal *Journal
}

// NewCallService creates the unproxied implementation.
func NewCallService(journal *Journal) CallService {
	return &callService{journal: journal}
}

func (s *callService) External(ctx context.Context) error {
	logger.Info(ctx, "external call")
	s.journal.Record(ctx, "External")
	// Self-invocation: goes straight to the receiver, never to the proxy.
	return s.Internal(ctx)
}

func (s *callService) Internal(ctx context.Context) error {
	logger.Info(ctx, "internal call")
	s.journal.Record(ctx, "Internal")
	return nil
}

// callServiceProxy routes every CallService method through the interceptor.
type callServiceProxy struct {
	target CallService
	ic     *proxy.Interceptor
}

// NewCallServiceProxy wraps target.
func NewCallServiceProxy(target CallService, ic *proxy.Interceptor) CallService {
	return &callServiceProxy{target: target, ic: ic}
}

func (p *callServiceProxy) External(ctx context.Context) error {
	return p.ic.Invoke(ctx, "External", p.target.External)
}

func (p *callServiceProxy) Internal(ctx context.Context) error {
	return p.ic.Invoke(ctx, "Internal", p.target.Internal)
}
