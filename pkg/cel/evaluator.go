package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"resultsink/internal/umb"
)

// Evaluator compiles and runs boolean CEL filter expressions against
// decoded bus messages. Expressions see the topic, the bus headers and
// the message body.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("topic", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("body", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Filter is a compiled, reusable filter expression.
type Filter struct {
	program cel.Program
}

// CompileFilter validates that the expression yields a bool and builds
// the reusable program.
func (e *Evaluator) CompileFilter(expression string) (*Filter, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Filter{program: program}, nil
}

// Match evaluates the filter against one message.
func (f *Filter) Match(ctx context.Context, msg umb.RawMessage) (bool, error) {
	headers := msg.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	body := msg.Body
	if body == nil {
		body = map[string]interface{}{}
	}

	result, _, err := f.program.ContextEval(ctx, map[string]interface{}{
		"topic":   msg.Topic,
		"headers": headers,
		"body":    body,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return matched, nil
}
