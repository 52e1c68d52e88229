// Package proxy implements interface-based transactional interception.
//
// A proxy is an explicit wrapper type implementing a service interface. It
// holds the real implementation and an Interceptor, and routes every method
// through Interceptor.Invoke. Calls the implementation makes on its own
// receiver never pass through the wrapper, so they are never intercepted.
package proxy

import (
	"context"
	"slices"

	"txproxy/internal/core/apperror"
)

// Attribute is the transactional marking of one method.
type Attribute struct {
	Transactional bool `yaml:"transactional" json:"transactional"`
	ReadOnly      bool `yaml:"readOnly" json:"read_only"`
}

// Transactional is the attribute of a plain read-write transactional method.
var Transactional = Attribute{Transactional: true}

// ReadOnly is the attribute of a read-only transactional method.
var ReadOnly = Attribute{Transactional: true, ReadOnly: true}

// Source resolves the attribute of a method on a target.
// A false second result means the method carries no marking. ctx is the
// call's context and is only used for logging.
type Source interface {
	Lookup(ctx context.Context, target, method string) (Attribute, bool)
}

// Table is a static method name -> attribute mapping for one target.
type Table map[string]Attribute

// Lookup implements Source. The target name is ignored.
func (t Table) Lookup(_ context.Context, _ string, method string) (Attribute, bool) {
	attr, ok := t[method]
	return attr, ok
}

// Validate checks that every entry names one of the known methods.
func (t Table) Validate(target string, known ...string) error {
	for method := range t {
		if !slices.Contains(known, method) {
			return apperror.NewUnknownMethod(target, method)
		}
	}
	return nil
}

// chain consults sources in order; the first match wins.
type chain []Source

// Sources combines several sources into one.
func Sources(sources ...Source) Source {
	out := make(chain, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c chain) Lookup(ctx context.Context, target, method string) (Attribute, bool) {
	for _, s := range c {
		if attr, ok := s.Lookup(ctx, target, method); ok {
			return attr, true
		}
	}
	return Attribute{}, false
}
