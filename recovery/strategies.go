package recovery

import (
	"fmt"
	"sync"
)

// StrictStrategy implements a fail-fast recovery strategy. The pipeline
// aborts on the first stage error instead of degrading that stage's result.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy implements a best-effort recovery strategy: every stage
// error is accumulated and downgraded to a warning so the remaining stages
// still run. This is the pipeline's default. One instance may be shared by
// concurrent pipeline invocations, so the accumulator is locked.
type LenientStrategy struct {
	mu     sync.Mutex
	errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.mu.Lock()
	s.errors = append(s.errors, fmt.Errorf("[%s] %s: %w", location.Stage, location.ImagePath, err))
	s.mu.Unlock()
	return ActionWarn
}

// Errors returns a snapshot of the accumulated stage errors.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}
