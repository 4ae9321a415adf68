package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/datagate/datagate/internal/validation"
	"github.com/panjf2000/ants/v2"
)

// RunOptions controls multi-source runs.
type RunOptions struct {
	Parallel bool
	// ContinueOnError keeps a sequential run going after a failed source.
	ContinueOnError bool
}

// RunAll runs the given adapters, or every registered adapter when keys is
// empty. Results keep the order of keys. Parallel runs always settle every
// source.
func (o *Orchestrator) RunAll(ctx context.Context, keys []string, opts RunOptions) ([]RunResult, error) {
	if len(keys) == 0 {
		keys = o.adapters.Keys()
	}
	o.logger.Info("starting ingestion for sources",
		"count", len(keys),
		"parallel", opts.Parallel,
		"continue_on_error", opts.ContinueOnError)

	if !opts.Parallel {
		return o.runSequential(ctx, keys, opts), nil
	}
	return o.runParallel(ctx, keys)
}

func (o *Orchestrator) runSequential(ctx context.Context, keys []string, opts RunOptions) []RunResult {
	results := make([]RunResult, 0, len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			o.logger.Warn("multi-source run cancelled", "remaining", len(keys)-len(results))
			break
		}
		res := o.safeRun(ctx, key)
		results = append(results, res)
		if !res.Success && !opts.ContinueOnError {
			o.logger.Warn("stopping after failed source", "adapter", key)
			break
		}
	}
	return results
}

func (o *Orchestrator) runParallel(ctx context.Context, keys []string) ([]RunResult, error) {
	pool, err := ants.NewPool(o.config.ConcurrentSources)
	if err != nil {
		return nil, fmt.Errorf("create source pool: %w", err)
	}
	defer pool.Release()

	results := make([]RunResult, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		i, key := i, key
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = o.safeRun(ctx, key)
		}); err != nil {
			wg.Done()
			results[i] = panicResult(key, fmt.Errorf("submit run: %w", err))
		}
	}
	wg.Wait()
	return results, nil
}

// safeRun converts a panic inside one source run into a failed result.
func (o *Orchestrator) safeRun(ctx context.Context, key string) (res RunResult) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("source run panicked", "adapter", key, "panic", p)
			res = panicResult(key, fmt.Errorf("run panicked: %v", p))
			res.StartedAt = o.now()
		}
	}()
	return o.RunSource(ctx, key)
}

func panicResult(key string, err error) RunResult {
	return RunResult{
		Adapter: key,
		State:   StateFailed,
		Error:   err.Error(),
		Invalid: []validation.Invalid{},
		err:     err,
	}
}
