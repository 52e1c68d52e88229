// Package app wires the demonstration services and runs the scenarios.
package app

import (
	"fmt"

	"txproxy/internal/config"
	"txproxy/internal/core/proxy"
	"txproxy/internal/core/tx"
	"txproxy/internal/domain/calls"
)

// Options configure the container.
type Options struct {
	// Config falls back to config.Defaults only when Targets is nil.
	// A non-nil empty map marks nothing.
	Config  config.Config
	Manager tx.Manager
	Journal *calls.Journal
}

// Container holds the proxied service graph.
type Container struct {
	Config  config.Config
	Journal *calls.Journal

	// Calls is proxied directly, so its self-calls bypass the interceptor.
	Calls calls.CallService
	// Internal is the proxied collaborator shared by Delegating.
	Internal calls.InternalService
	// Delegating holds Internal, so its calls cross the proxy boundary.
	Delegating calls.DelegatingService
}

// New constructs the container using the supplied options.
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if cfg.Targets == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	manager := opts.Manager
	if manager == nil {
		manager = tx.NewLocalManager()
	}

	journal := opts.Journal
	if journal == nil {
		journal = calls.NewJournal()
	}

	callIC, err := interceptor(cfg, config.TargetCallService, manager, calls.CallServiceMethods)
	if err != nil {
		return nil, err
	}
	internalIC, err := interceptor(cfg, config.TargetInternalService, manager, calls.InternalServiceMethods)
	if err != nil {
		return nil, err
	}
	delegatingIC, err := interceptor(cfg, config.TargetDelegatingService, manager, calls.DelegatingServiceMethods)
	if err != nil {
		return nil, err
	}

	internal := calls.NewInternalServiceProxy(calls.NewInternalService(journal), internalIC)

	return &Container{
		Config:     cfg,
		Journal:    journal,
		Calls:      calls.NewCallServiceProxy(calls.NewCallService(journal), callIC),
		Internal:   internal,
		Delegating: calls.NewDelegatingServiceProxy(calls.NewDelegatingService(internal, journal), delegatingIC),
	}, nil
}

func interceptor(cfg config.Config, target string, manager tx.Manager, methods []string) (*proxy.Interceptor, error) {
	if t, ok := cfg.Targets[target]; ok {
		if err := t.Methods.Validate(target, methods...); err != nil {
			return nil, err
		}
	}
	src, err := cfg.Source(target)
	if err != nil {
		return nil, fmt.Errorf("build %s interceptor: %w", target, err)
	}
	return proxy.New(target, src, manager), nil
}
