package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testPolicy = Policy{Attempts: 3, Min: time.Millisecond, Max: 5 * time.Millisecond}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := testPolicy.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want=1", calls)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := testPolicy.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want=2", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	err := testPolicy.Do(context.Background(), func() error {
		calls++
		return boom
	})
	if calls != 3 {
		t.Fatalf("calls=%d want=3", calls)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("ожидали ExhaustedError, получили %v", err)
	}
	if ex.Attempts != 3 || !errors.Is(err, boom) {
		t.Fatalf("attempts=%d last=%v", ex.Attempts, ex.Last)
	}
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("HTTP 400")
	err := testPolicy.Do(context.Background(), func() error {
		calls++
		return Permanent(boom)
	})
	if calls != 1 {
		t.Fatalf("calls=%d want=1 (permanent не повторяется)", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want=%v", err, boom)
	}
	var ex *ExhaustedError
	if errors.As(err, &ex) {
		t.Fatalf("permanent не должен считаться исчерпанием бюджета")
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := testPolicy.Do(ctx, func() error { return errors.New("connection refused") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
}
