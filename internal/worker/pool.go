// Package worker runs noise tile rendering jobs across a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/tile"
)

// Generator renders a single tile. pipeline.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, coords tile.Coords, force bool) (path string, err error)
}

// Task is one tile to render.
type Task struct {
	Coords tile.Coords
	Force  bool
}

// Result is the outcome of a Task.
type Result struct {
	Task    Task
	Path    string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Generator  Generator
	OnProgress ProgressFunc
}

// Pool fans tasks out to a bounded set of workers.
type Pool struct {
	workers    int
	generator  Generator
	onProgress ProgressFunc
}

// New creates a pool. Workers below 1 are treated as 1.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

// Tasks wraps coords into tasks sharing the same force flag.
func Tasks(coords []tile.Coords, force bool) []Task {
	tasks := make([]Task, len(coords))
	for i, c := range coords {
		tasks[i] = Task{Coords: c, Force: force}
	}
	return tasks
}

// Run executes all tasks and blocks until every queued task has reported.
// Tasks not yet started when ctx is cancelled report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task)
	resultCh := make(chan Result, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resultCh <- p.run(ctx, task)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(taskCh)
		for i, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				for _, rest := range tasks[i:] {
					resultCh <- Result{Task: rest, Err: ctx.Err()}
				}
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(tasks))
	failed := 0
	for result := range resultCh {
		results = append(results, result)
		if result.Err != nil {
			failed++
		}
		if p.onProgress != nil {
			p.onProgress(len(results), len(tasks), failed)
		}
	}

	return results
}

func (p *Pool) run(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}

	start := time.Now()
	path, err := p.generator.Generate(ctx, task.Coords, task.Force)
	return Result{
		Task:    task,
		Path:    path,
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// FirstError returns the first non-cancellation error in results, or the
// cancellation error if that is all there is.
func FirstError(results []Result) error {
	var cancelled error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			if cancelled == nil {
				cancelled = r.Err
			}
			continue
		}
		return r.Err
	}
	return cancelled
}
