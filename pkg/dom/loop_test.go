package dom_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsequence/pkg/dom"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := dom.NewLoop(nil)
	defer loop.Close()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}
	loop.Settle()

	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopGoQueuesContinuation(t *testing.T) {
	loop := dom.NewLoop(nil)
	defer loop.Close()

	var order []string
	release := make(chan struct{})
	loop.Go(func() func() {
		<-release
		return func() { order = append(order, "continuation") }
	})
	loop.Post(func() { order = append(order, "task") })

	time.AfterFunc(10*time.Millisecond, func() { close(release) })
	loop.Settle()

	if diff := cmp.Diff([]string{"task", "continuation"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopDoWaits(t *testing.T) {
	loop := dom.NewLoop(nil)
	defer loop.Close()

	var ran atomic.Bool
	if err := loop.Do(func() { ran.Store(true) }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !ran.Load() {
		t.Fatalf("expected task to have run")
	}
}

func TestLoopSurvivesPanics(t *testing.T) {
	loop := dom.NewLoop(nil)
	defer loop.Close()

	loop.Post(func() { panic("boom") })
	loop.Go(func() func() { panic("bang") })

	var ran bool
	loop.Post(func() { ran = true })
	loop.Settle()
	if !ran {
		t.Fatalf("loop stopped after a panic")
	}
}

func TestLoopGoRecoverQueuesPanicContinuation(t *testing.T) {
	loop := dom.NewLoop(nil)
	defer loop.Close()

	var got *dom.PanicError
	loop.GoRecover(func() func() { panic("bang") }, func(p *dom.PanicError) func() {
		return func() { got = p }
	})
	loop.Settle()

	if got == nil {
		t.Fatalf("expected the panic continuation to run")
	}
	if got.Value != "bang" {
		t.Fatalf("unexpected panic value %v", got.Value)
	}
	if got.Error() != "dom: background work panicked: bang" {
		t.Fatalf("unexpected error text %q", got.Error())
	}
}

func TestLoopClosedRejectsWork(t *testing.T) {
	loop := dom.NewLoop(nil)
	loop.Close()
	loop.Close()

	if loop.Post(func() {}) {
		t.Fatalf("post after close must fail")
	}
	if loop.Go(func() func() { return nil }) {
		t.Fatalf("go after close must fail")
	}
	if err := loop.Do(func() {}); err != dom.ErrLoopClosed {
		t.Fatalf("expected ErrLoopClosed, got %v", err)
	}
	loop.Settle()
}
