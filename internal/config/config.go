// Package config loads the declarative transactional attributes of proxied targets.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"txproxy/internal/core/apperror"
	"txproxy/internal/core/pointcut"
	"txproxy/internal/core/proxy"
)

// Target names used by the default service graph.
const (
	TargetCallService       = "callService"
	TargetInternalService   = "internalService"
	TargetDelegatingService = "delegatingService"
)

// Pointcut is a rule-based marking, see package pointcut.
type Pointcut struct {
	Expr          string `yaml:"expr"`
	Transactional bool   `yaml:"transactional"`
	ReadOnly      bool   `yaml:"readOnly"`
}

// Target holds the markings of one proxied target.
type Target struct {
	Methods   proxy.Table `yaml:"methods"`
	Pointcuts []Pointcut  `yaml:"pointcuts"`
}

// Config maps target names to their markings.
type Config struct {
	Targets map[string]Target `yaml:"targets"`
}

// Defaults returns the markings of the bundled demonstration services.
func Defaults() Config {
	return Config{
		Targets: map[string]Target{
			TargetCallService: {
				Methods: proxy.Table{"Internal": proxy.Transactional},
			},
			TargetInternalService: {
				Methods: proxy.Table{
					"Internal": proxy.Transactional,
					"Reject":   proxy.Transactional,
				},
				Pointcuts: []Pointcut{
					{Expr: `method.startsWith("Snapshot")`, Transactional: true, ReadOnly: true},
				},
			},
			TargetDelegatingService: {
				Methods: proxy.Table{"Outer": proxy.Transactional},
			},
		},
	}
}

// Load reads and parses a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
// A document without a targets key is rejected; use `targets: {}` to mark nothing.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, apperror.NewValidation("config is not valid YAML").WithCause(err)
	}
	if cfg.Targets == nil {
		return Config{}, apperror.NewValidation("config defines no targets")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural constraints. Expressions are compiled by Source.
func (c Config) Validate() error {
	for name, t := range c.Targets {
		if name == "" {
			return apperror.NewValidation("target name must not be empty")
		}
		for i, pc := range t.Pointcuts {
			if pc.Expr == "" {
				return apperror.NewValidation("pointcut expr must not be empty").
					WithDetail("target", name).
					WithDetail("index", i)
			}
		}
	}
	return nil
}

// TargetNames returns the configured target names, sorted.
func (c Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source builds the attribute source of a target: the method table first,
// then pointcuts in declaration order. Unknown targets mark nothing.
func (c Config) Source(target string) (proxy.Source, error) {
	t, ok := c.Targets[target]
	if !ok {
		return proxy.Table{}, nil
	}

	rules := make([]pointcut.Rule, 0, len(t.Pointcuts))
	for _, pc := range t.Pointcuts {
		rules = append(rules, pointcut.Rule{
			Expr:      pc.Expr,
			Attribute: proxy.Attribute{Transactional: pc.Transactional, ReadOnly: pc.ReadOnly},
		})
	}
	matcher, err := pointcut.Compile(rules...)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			return nil, appErr.WithDetail("target", target)
		}
		return nil, err
	}

	return proxy.Sources(t.Methods, matcher), nil
}
