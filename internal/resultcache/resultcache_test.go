package resultcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := New[int]("test")

	var calls int32
	var wg sync.WaitGroup
	results := make([]int, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[idx] = v
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("producer called %d times, want 1", got)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d, want 42", i, v)
		}
	}
}

func TestGetOrCompute_Expiry(t *testing.T) {
	c := New[int]("test")
	var calls int32

	produce := func(context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), nil
	}

	v1, err := c.GetOrCompute(context.Background(), "k", time.Millisecond, produce)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != 1 {
		t.Errorf("v1 = %d, want 1", v1)
	}

	time.Sleep(5 * time.Millisecond)

	v2, err := c.GetOrCompute(context.Background(), "k", time.Millisecond, produce)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2 != 2 {
		t.Errorf("v2 = %d, want 2 (expired entry should recompute)", v2)
	}
}

func TestGetOrCompute_FailureNotCached(t *testing.T) {
	c := New[int]("test")
	wantErr := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	v, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if v != 7 {
		t.Errorf("v = %d, want 7", v)
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int]("test")

	_, _ = c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 1, nil
	})

	c.Invalidate("k")

	v, _ := c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 2, nil
	})
	if v != 2 {
		t.Errorf("v = %d, want 2 after invalidation", v)
	}
}
