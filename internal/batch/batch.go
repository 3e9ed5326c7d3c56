// Package batch drives a per-item operation over a large collection with
// bounded chunk concurrency, per-item retry with exponential backoff, and
// partial-failure tolerance.
package batch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultBatchSize bounds how many items run concurrently per chunk.
	DefaultBatchSize = 50
	// DefaultRetryAttempts is the total number of tries per item.
	DefaultRetryAttempts = 3
	// DefaultBaseBackoff is the first retry delay; subsequent delays double.
	DefaultBaseBackoff = time.Second
)

// Options tunes a batch run. Zero values fall back to the defaults above.
type Options struct {
	BatchSize     int
	RetryAttempts int
	BaseBackoff   time.Duration
	Logger        *log.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = DefaultRetryAttempts
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = DefaultBaseBackoff
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Result is the per-item outcome of a detailed batch run.
type Result[R any] struct {
	Index    int
	Value    R
	Err      error
	Attempts int
}

// Process applies op to every item in consecutive chunks of BatchSize,
// all items of a chunk concurrently. Each item gets up to RetryAttempts
// tries with exponential backoff. Items that still fail are logged and
// excluded; the returned slice holds the fulfilled subset in item order.
func Process[T, R any](ctx context.Context, opts Options, items []T, op func(context.Context, T) (R, error)) []R {
	detailed := ProcessDetailed(ctx, opts, items, op)
	results := make([]R, 0, len(detailed))
	for _, r := range detailed {
		if r.Err == nil {
			results = append(results, r.Value)
		}
	}
	return results
}

// ProcessDetailed is Process for callers that need the failures too. The
// returned slice has one entry per input item, in item order.
func ProcessDetailed[T, R any](ctx context.Context, opts Options, items []T, op func(context.Context, T) (R, error)) []Result[R] {
	opts = opts.withDefaults()
	results := make([]Result[R], len(items))

	for start := 0; start < len(items); start += opts.BatchSize {
		if ctx.Err() != nil {
			for i := start; i < len(items); i++ {
				results[i] = Result[R]{Index: i, Err: ctx.Err()}
			}
			break
		}

		end := start + opts.BatchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = runItem(ctx, opts, idx, items[idx], op)
			}(i)
		}
		wg.Wait()
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		opts.Logger.Printf("batch: %d/%d items failed after retries", failed, len(items))
	}
	return results
}

// runItem executes one item with the retry policy. Every error is treated
// as transient and retried until attempts are exhausted.
func runItem[T, R any](ctx context.Context, opts Options, idx int, item T, op func(context.Context, T) (R, error)) Result[R] {
	res := Result[R]{Index: idx}

	backoff := retry.WithMaxRetries(uint64(opts.RetryAttempts-1), retry.NewExponential(opts.BaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res.Attempts++
		value, opErr := op(ctx, item)
		if opErr != nil {
			return retry.RetryableError(opErr)
		}
		res.Value = value
		return nil
	})
	if err != nil {
		res.Err = err
		opts.Logger.Printf("batch: item %d failed after %d attempts: %v", idx, res.Attempts, err)
	}
	return res
}
