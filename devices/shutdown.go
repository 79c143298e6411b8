package devices

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mobile-next/touchbridge/utils"
)

// ShutdownHook runs cleanup when the process is asked to stop (SIGINT/SIGTERM
// or the server.shutdown method). Hooks run in reverse registration order so
// later resources are released before the ones they depend on.
type ShutdownHook struct {
	mu    sync.Mutex
	hooks []namedHook
	done  bool
}

type namedHook struct {
	name string
	fn   func() error
}

func NewShutdownHook() *ShutdownHook {
	return &ShutdownHook{}
}

// Register adds a cleanup function. Registering after Shutdown runs fn at once.
func (s *ShutdownHook) Register(name string, cleanupFn func() error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		if err := cleanupFn(); err != nil {
			utils.Warn("late shutdown hook %s failed: %v", name, err)
		}
		return
	}
	s.hooks = append(s.hooks, namedHook{name: name, fn: cleanupFn})
	s.mu.Unlock()
	utils.Verbose("Registered shutdown hook: %s", name)
}

// Shutdown runs every hook, even after failures, and reports all failures together.
func (s *ShutdownHook) Shutdown() error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.done = true
	s.mu.Unlock()

	if len(hooks) == 0 {
		return nil
	}

	utils.Verbose("Executing %d shutdown hook(s)", len(hooks))
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		utils.Verbose("Running shutdown hook: %s", hook.name)
		if err := hook.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown failed with %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (s *ShutdownHook) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}
