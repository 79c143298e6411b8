package devices

import (
	"errors"
	"fmt"
	"testing"
)

func TestShutdownHook_RegisterAndShutdown(t *testing.T) {
	hook := NewShutdownHook()

	called := false
	hook.Register("test-hook", func() error {
		called = true
		return nil
	})

	if hook.Count() != 1 {
		t.Errorf("Expected 1 hook, got %d", hook.Count())
	}

	if err := hook.Shutdown(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !called {
		t.Error("Hook was not called")
	}
	if hook.Count() != 0 {
		t.Errorf("Expected hooks to be cleared, got %d", hook.Count())
	}
}

func TestShutdownHook_ReverseOrder(t *testing.T) {
	hook := NewShutdownHook()

	var order []string
	for _, name := range []string{"registry", "server", "watcher"} {
		name := name
		hook.Register(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	if err := hook.Shutdown(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{"watcher", "server", "registry"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("hooks ran in order %v, want %v", order, want)
	}
}

func TestShutdownHook_ErrorHandling(t *testing.T) {
	hook := NewShutdownHook()
	failure := errors.New("cleanup failed")

	ran := 0
	hook.Register("success", func() error { ran++; return nil })
	hook.Register("failure", func() error { ran++; return failure })
	hook.Register("success2", func() error { ran++; return nil })

	err := hook.Shutdown()
	if !errors.Is(err, failure) {
		t.Errorf("Expected wrapped cleanup error, got %v", err)
	}
	if ran != 3 {
		t.Errorf("Expected all 3 hooks to run, got %d", ran)
	}
	if hook.Count() != 0 {
		t.Errorf("Expected hooks to be cleared even after error, got %d", hook.Count())
	}
}

func TestShutdownHook_EmptyShutdown(t *testing.T) {
	hook := NewShutdownHook()

	if err := hook.Shutdown(); err != nil {
		t.Errorf("Empty shutdown should not error: %v", err)
	}
}

func TestShutdownHook_RegisterAfterShutdownRunsImmediately(t *testing.T) {
	hook := NewShutdownHook()
	_ = hook.Shutdown()

	called := false
	hook.Register("late", func() error {
		called = true
		return nil
	})

	if !called {
		t.Error("late hook was not run")
	}
	if hook.Count() != 0 {
		t.Errorf("Expected no pending hooks, got %d", hook.Count())
	}
}

func TestShutdownHook_ConcurrentRegister(t *testing.T) {
	hook := NewShutdownHook()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(n int) {
			hook.Register(fmt.Sprintf("hook-%d", n), func() error { return nil })
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if hook.Count() != 10 {
		t.Errorf("Expected 10 hooks, got %d", hook.Count())
	}
}
