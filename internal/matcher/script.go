package matcher

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/wergy/milestone/internal/criteria"
	"github.com/wergy/milestone/internal/event"
)

// scriptCostLimit bounds evaluation cost so a pathological definition cannot
// stall event processing.
const scriptCostLimit = 100_000

// scriptCache compiles scripted-condition expressions once and reuses the
// programs across evaluations.
type scriptCache struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newScriptCache() (*scriptCache, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.UintType),
		cel.Variable("asset", cel.UintType),
		cel.Variable("value", cel.UintType),
		cel.Variable("map", cel.UintType),
		cel.Variable("difficulty", cel.UintType),
		cel.Variable("group_size", cel.UintType),
		cel.Variable("in_group", cel.BoolType),
		cel.Variable("source", cel.DynType),
		cel.Variable("target", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	return &scriptCache{env: env, programs: make(map[string]cel.Program)}, nil
}

// program returns the compiled program for the expression, compiling and
// caching it on first use.
func (sc *scriptCache) program(expression string) (cel.Program, error) {
	sc.mu.RLock()
	prog, ok := sc.programs[expression]
	sc.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := sc.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile script: %w", issues.Err())
	}
	prog, err := sc.env.Program(ast, cel.CostLimit(scriptCostLimit))
	if err != nil {
		return nil, fmt.Errorf("build script program: %w", err)
	}

	sc.mu.Lock()
	sc.programs[expression] = prog
	sc.mu.Unlock()
	return prog, nil
}

// scriptMatches evaluates a CEL scripted condition against the event facts.
// Compile and evaluation failures fail closed and are logged once per
// criterion.
func (m *Matcher) scriptMatches(evt *event.Event, c *criteria.Criterion, mod *criteria.Modifier) bool {
	if mod.Script == "" {
		return false
	}
	prog, err := m.scripts.program(mod.Script)
	if err != nil {
		m.warnOnce(fmt.Sprintf("script:%d", c.ID), "scripted condition does not compile",
			"criterion_id", c.ID, "error", err)
		return false
	}
	out, _, err := prog.Eval(evt.Facts())
	if err != nil {
		m.warnOnce(fmt.Sprintf("script-eval:%d", c.ID), "scripted condition evaluation failed",
			"criterion_id", c.ID, "error", err)
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
