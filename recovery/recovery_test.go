package recovery

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStrictStrategy(t *testing.T) {
	s := NewStrictStrategy()
	action := s.OnError(nil, errors.New("unreadable image"), Location{Stage: "inspect"})
	if action != ActionFail {
		t.Fatalf("strict strategy returned %v, want ActionFail", action)
	}
}

func TestLenientStrategyAccumulates(t *testing.T) {
	s := NewLenientStrategy()
	loc := Location{Stage: "deobject", ImagePath: "/tmp/page.jpg"}

	if action := s.OnError(nil, errors.New("mask failed"), loc); action != ActionWarn {
		t.Fatalf("lenient strategy returned %v, want ActionWarn", action)
	}
	if action := s.OnError(nil, errors.New("inpaint failed"), loc); action != ActionWarn {
		t.Fatalf("lenient strategy returned %v, want ActionWarn", action)
	}
	if len(s.Errors()) != 2 {
		t.Fatalf("accumulated %d errors, want 2", len(s.Errors()))
	}
}

func TestLenientStrategySharedAcrossGoroutines(t *testing.T) {
	s := NewLenientStrategy()

	const goroutines = 4
	const perGoroutine = 100
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			loc := Location{Stage: "inspect", ImagePath: fmt.Sprintf("/tmp/page-%d.jpg", g)}
			for i := 0; i < perGoroutine; i++ {
				if action := s.OnError(nil, errors.New("stage degraded"), loc); action != ActionWarn {
					t.Errorf("lenient strategy returned %v, want ActionWarn", action)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	if got := len(s.Errors()); got != goroutines*perGoroutine {
		t.Fatalf("accumulated %d errors, want %d", got, goroutines*perGoroutine)
	}
}
