// Package pointcut resolves method attributes from CEL rule expressions.
//
// Each rule is a boolean expression over two string variables, target and
// method:
//
//	method.startsWith("Find") && target == "orders"
package pointcut

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"txproxy/internal/core/apperror"
	"txproxy/internal/core/proxy"
	"txproxy/pkg/logger"
)

// Rule pairs an expression with the attribute it grants.
type Rule struct {
	Expr      string
	Attribute proxy.Attribute
}

type compiled struct {
	rule    Rule
	program cel.Program
}

// Matcher evaluates compiled rules in declaration order.
// It is safe for concurrent use.
type Matcher struct {
	rules []compiled
}

var _ proxy.Source = (*Matcher)(nil)

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("target", cel.StringType),
		cel.Variable("method", cel.StringType),
	)
}

// Compile type-checks every rule and prepares it for evaluation.
func Compile(rules ...Rule) (*Matcher, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	m := &Matcher{rules: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, apperror.NewInvalidPointcut(r.Expr, iss.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, apperror.NewInvalidPointcut(r.Expr,
				fmt.Errorf("expression yields %s, want bool", ast.OutputType()))
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, apperror.NewInvalidPointcut(r.Expr, err)
		}
		m.rules = append(m.rules, compiled{rule: r, program: prg})
	}
	return m, nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// Lookup implements proxy.Source.
// Rules that fail at evaluation time are logged on ctx and skipped.
func (m *Matcher) Lookup(ctx context.Context, target, method string) (proxy.Attribute, bool) {
	vars := map[string]any{"target": target, "method": method}
	for _, c := range m.rules {
		out, _, err := c.program.Eval(vars)
		if err != nil {
			logger.Warn(ctx, "pointcut evaluation failed",
				"expr", c.rule.Expr, "target", target, "method", method, "error", err)
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return c.rule.Attribute, true
		}
	}
	return proxy.Attribute{}, false
}
