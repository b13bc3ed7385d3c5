package port

import "context"

// Runner executes an external tool and returns its stdout. Implementations
// capture a stderr tail for operator-facing logs; callers only see a wrapped
// failure. Tests substitute fakes so no encoder binary is needed.
type Runner interface {
	Run(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return f(ctx, binary, args...)
}
