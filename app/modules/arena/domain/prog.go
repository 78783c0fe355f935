package arenadomain

import (
	"context"
	"fmt"
)

// Prog is a compiled script hook. Execute may fail or return a value of an
// unexpected type; callers decide how to degrade.
type Prog interface {
	ID() ProgramID
	Name() string
	Execute(ctx context.Context, args ...any) (any, error)
}

// execute runs p and converts panics into errors.
func execute(ctx context.Context, p Prog, args ...any) (result any, err error) {
	if p == nil {
		return nil, fmt.Errorf("no program")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program %q panicked: %v", p.Name(), r)
		}
	}()
	return p.Execute(ctx, args...)
}

// evalBool is fail-closed: anything but a clean true is false.
func evalBool(ctx context.Context, p Prog, args ...any) bool {
	v, err := execute(ctx, p, args...)
	if err != nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func evalNumber(ctx context.Context, p Prog, args ...any) (float64, bool) {
	v, err := execute(ctx, p, args...)
	if err != nil {
		return 0, false
	}
	return toFloat(v)
}

func evalNumbers(ctx context.Context, p Prog, args ...any) ([]float64, bool) {
	v, err := execute(ctx, p, args...)
	if err != nil {
		return nil, false
	}
	switch list := v.(type) {
	case []float64:
		return list, true
	case []int:
		out := make([]float64, len(list))
		for i, n := range list {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, 0, len(list))
		for _, item := range list {
			n, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	if n, ok := toFloat(v); ok {
		return []float64{n}, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
