package calls

import (
	"context"
	"errors"

	"txproxy/internal/core/proxy"
	"txproxy/pkg/logger"
)

// ErrRejected is returned by InternalService.Reject.
var ErrRejected = errors.New("internal call rejected")

// InternalService owns the transactional work that DelegatingService hands off.
type InternalService interface {
	Internal(ctx context.Context) error
	Reject(ctx context.Context) error
	Snapshot(ctx context.Context) (Observation, error)
}

// InternalServiceMethods lists the methods an InternalService proxy routes.
var InternalServiceMethods = []string{"Internal", "Reject", "Snapshot"}

type internalService struct {
	journal *Journal
}

// NewInternalService creates the unproxied implementation.
func NewInternalService(journal *Journal) InternalService {
	return &internalService{journal: journal}
}

func (s *internalService) Internal(ctx context.Context) error {
	logger.Info(ctx, "internal call")
	s.journal.Record(ctx, "Internal")
	return nil
}

func (s *internalService) Reject(ctx context.Context) error {
	logger.Info(ctx, "reject call")
	s.journal.Record(ctx, "Reject")
	return ErrRejected
}

func (s *internalService) Snapshot(ctx context.Context) (Observation, error) {
	return s.journal.Record(ctx, "Snapshot"), nil
}

type internalServiceProxy struct {
	target InternalService
	ic     *proxy.Interceptor
}

// NewInternalServiceProxy wraps target.
func NewInternalServiceProxy(target InternalService, ic *proxy.Interceptor) InternalService {
	return &internalServiceProxy{target: target, ic: ic}
}

func (p *internalServiceProxy) Internal(ctx context.Context) error {
	return p.ic.Invoke(ctx, "Internal", p.target.Internal)
}

func (p *internalServiceProxy) Reject(ctx context.Context) error {
	return p.ic.Invoke(ctx, "Reject", p.target.Reject)
}

func (p *internalServiceProxy) Snapshot(ctx context.Context) (Observation, error) {
	return proxy.Call(ctx, p.ic, "Snapshot", p.target.Snapshot)
}

// DelegatingService calls Internal on a separate, proxied InternalService.
type DelegatingService interface {
	// External is not transactional.
	External(ctx context.Context) error
	// Outer is transactional and nests the delegated call.
	Outer(ctx context.Context) error
}

// DelegatingServiceMethods lists the methods a DelegatingService proxy routes.
var DelegatingServiceMethods = []string{"External", "Outer"}

type delegatingService struct {
	internal InternalService
	journal  *Journal
}

// NewDelegatingService creates the unproxied implementation around internal,
// which should itself be a proxy.
func NewDelegatingService(internal InternalService, journal *Journal) DelegatingService {
	return &delegatingService{internal: internal, journal: journal}
}

func (s *delegatingService) External(ctx context.Context) error {
	logger.Info(ctx, "external call")
	s.journal.Record(ctx, "External")
	return s.internal.Internal(ctx)
}

func (s *delegatingService) Outer(ctx context.Context) error {
	logger.Info(ctx, "outer call")
	s.journal.Record(ctx, "Outer")
	if err := s.internal.Internal(ctx); err != nil {
		return err
	}
	s.journal.Record(ctx, "Outer")
	return nil
}

type delegatingServiceProxy struct {
	target DelegatingService
	ic     *proxy.Interceptor
}

// NewDelegatingServiceProxy wraps target.
func NewDelegatingServiceProxy(target DelegatingService, ic *proxy.Interceptor) DelegatingService {
	return &delegatingServiceProxy{target: target, ic: ic}
}

func (p *delegatingServiceProxy) External(ctx context.Context) error {
	return p.ic.Invoke(ctx, "External", p.target.External)
}

func (p *delegatingServiceProxy) Outer(ctx context.Context) error {
	return p.ic.Invoke(ctx, "Outer", p.target.Outer)
}
