package batch

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietOpts() Options {
	return Options{
		BatchSize:     4,
		RetryAttempts: 3,
		BaseBackoff:   time.Millisecond,
		Logger:        log.New(io.Discard, "", 0),
	}
}

func TestProcessAllSucceed(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	got := Process(context.Background(), quietOpts(), items, func(_ context.Context, n int) (string, error) {
		return strconv.Itoa(n * 2), nil
	})

	if len(got) != len(items) {
		t.Fatalf("got %d results, want %d", len(got), len(items))
	}
	for i, n := range items {
		want := strconv.Itoa(n * 2)
		if got[i] != want {
			t.Errorf("result %d = %q, want %q", i, got[i], want)
		}
	}
}

func TestProcessExcludesFailedItems(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	got := Process(context.Background(), quietOpts(), items, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("always fails")
		}
		return n, nil
	})

	if len(got) != 9 {
		t.Fatalf("got %d results, want 9", len(got))
	}
	for _, v := range got {
		if v == 3 {
			t.Error("failed item present in results")
		}
	}
}

func TestProcessDetailedRetryCount(t *testing.T) {
	items := []string{"ok", "flaky", "dead"}
	var flakyCalls atomic.Int32

	results := ProcessDetailed(context.Background(), quietOpts(), items, func(_ context.Context, s string) (string, error) {
		switch s {
		case "flaky":
			if flakyCalls.Add(1) < 2 {
				return "", errors.New("transient")
			}
			return s, nil
		case "dead":
			return "", errors.New("permanent")
		}
		return s, nil
	})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Attempts != 1 {
		t.Errorf("ok item: err=%v attempts=%d, want nil/1", results[0].Err, results[0].Attempts)
	}
	if results[1].Err != nil || results[1].Attempts != 2 {
		t.Errorf("flaky item: err=%v attempts=%d, want nil/2", results[1].Err, results[1].Attempts)
	}
	if results[2].Err == nil || results[2].Attempts != 3 {
		t.Errorf("dead item: err=%v attempts=%d, want error/3", results[2].Err, results[2].Attempts)
	}
}

func TestProcessDetailedPreservesOrder(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	results := ProcessDetailed(context.Background(), quietOpts(), items, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	for i, r := range results {
		if r.Index != i || r.Value != i {
			t.Errorf("result %d: index=%d value=%d", i, r.Index, r.Value)
		}
	}
}

func TestProcessChunkConcurrency(t *testing.T) {
	opts := quietOpts()
	opts.BatchSize = 3

	var mu sync.Mutex
	active, peak := 0, 0

	items := make([]int, 10)
	Process(context.Background(), opts, items, func(_ context.Context, n int) (int, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return n, nil
	})

	if peak > opts.BatchSize {
		t.Errorf("peak concurrency %d exceeds batch size %d", peak, opts.BatchSize)
	}
}

func TestProcessDetailedCancelledContext(t *testing.T) {
	opts := quietOpts()
	opts.BatchSize = 2

	ctx, cancel := context.WithCancel(context.Background())

	items := []int{1, 2, 3, 4, 5, 6}
	var calls atomic.Int32

	results := ProcessDetailed(ctx, opts, items, func(_ context.Context, n int) (int, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return n, nil
	})

	if int(calls.Load()) >= len(items) {
		t.Error("all items ran despite cancellation")
	}
	cancelled := 0
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("no results carry the cancellation error")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", o.BatchSize, DefaultBatchSize)
	}
	if o.RetryAttempts != DefaultRetryAttempts {
		t.Errorf("RetryAttempts = %d, want %d", o.RetryAttempts, DefaultRetryAttempts)
	}
	if o.BaseBackoff != DefaultBaseBackoff {
		t.Errorf("BaseBackoff = %v, want %v", o.BaseBackoff, DefaultBaseBackoff)
	}
	if o.Logger == nil {
		t.Error("Logger should default to non-nil")
	}
}

func TestProcessEmptyInput(t *testing.T) {
	got := Process(context.Background(), quietOpts(), nil, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	if len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}
