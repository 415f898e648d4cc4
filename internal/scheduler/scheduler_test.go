package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunsImmediately(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := New(RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	}), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no run observed before deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestScheduler_TicksUntilCancelled(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := New(RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	}), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before deadline, want at least 3", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestScheduler_SurvivesFailedCycles(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := New(RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return errors.New("feed unreachable")
	}), 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before deadline, want at least 2", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestScheduler_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	var runs atomic.Int64
	s := New(RunnerFunc(func(context.Context) error {
		runs.Add(1)
		return nil
	}), time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	if got := runs.Load(); got != 0 {
		t.Errorf("runs = %d, want 0 for pre-cancelled context", got)
	}
}
