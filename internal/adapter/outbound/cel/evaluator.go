// Package cel evaluates route conditions written in CEL.
package cel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// maxExpressionLength is the maximum allowed length for a condition.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit per evaluation.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout bounds a single evaluation.
const evalTimeout = time.Second

// interruptCheckFreq is how often (in comprehension iterations) context
// cancellation is checked.
const interruptCheckFreq = 100

// Evaluator compiles and evaluates route conditions. Compiled programs are
// cached by expression text.
type Evaluator struct {
	env *cel.Env
	now func() time.Time

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEvaluator creates an Evaluator over the route environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewRouteEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create route environment: %w", err)
	}
	return &Evaluator{
		env:      env,
		now:      time.Now,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile parses and type-checks a CEL expression, returning a compiled program.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must be boolean, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}
	return prg, nil
}

func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// ValidateExpression checks that a condition is well formed and within the
// size limits.
func (e *Evaluator) ValidateExpression(expr string) error {
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}
	if expr == "" {
		return errors.New("expression is empty")
	}
	if err := validateNesting(expr); err != nil {
		return err
	}
	if _, err := e.Compile(expr); err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}
	return nil
}

// Evaluate runs a compiled program against the profile.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, profile *session.UserProfile) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, BuildActivation(profile, e.now()))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}
	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}
	return b, nil
}

// EvaluateCondition validates, compiles (once), and evaluates expr. It
// implements guard.ConditionEvaluator.
func (e *Evaluator) EvaluateCondition(ctx context.Context, expr string, profile *session.UserProfile) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	return e.Evaluate(ctx, prg, profile)
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	if err := e.ValidateExpression(expr); err != nil {
		return nil, err
	}
	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.programs[expr] = prg
	e.mu.Unlock()
	return prg, nil
}
