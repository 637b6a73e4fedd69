package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/noisemap/internal/tile"
)

type mockGenerator struct {
	delay     time.Duration
	failTiles map[string]bool
	callCount atomic.Int32
}

func (m *mockGenerator) Generate(ctx context.Context, coords tile.Coords, force bool) (string, error) {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failTiles[coords.String()] {
		return "", errors.New("simulated failure")
	}

	return "/tmp/" + coords.Path("png"), nil
}

func rowTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Coords: tile.NewCoords(2, i-n/2, -1)}
	}
	return tasks
}

func TestPool_BasicExecution(t *testing.T) {
	gen := &mockGenerator{delay: 10 * time.Millisecond}
	pool := New(Config{Workers: 2, Generator: gen})

	tasks := rowTasks(3)
	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Coords, r.Err)
		}
		if r.Path == "" {
			t.Errorf("Expected path for %s, got empty", r.Task.Coords)
		}
	}
	if gen.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d generator calls, got %d", len(tasks), gen.callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	gen := &mockGenerator{delay: 50 * time.Millisecond}
	pool := New(Config{Workers: 4, Generator: gen})

	tasks := rowTasks(8)
	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// 8 tasks over 4 workers is two rounds of 50ms.
	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}
	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	failTile := "z2_x0_y-1"
	gen := &mockGenerator{
		delay:     10 * time.Millisecond,
		failTiles: map[string]bool{failTile: true},
	}
	pool := New(Config{Workers: 2, Generator: gen})

	results := pool.Run(context.Background(), rowTasks(3))

	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Coords.String() != failTile {
				t.Errorf("Unexpected failure for %s", r.Task.Coords)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
	if err := FirstError(results); err == nil || err.Error() != "simulated failure" {
		t.Errorf("FirstError = %v", err)
	}
}

func TestPool_Cancellation(t *testing.T) {
	gen := &mockGenerator{delay: 100 * time.Millisecond}
	pool := New(Config{Workers: 2, Generator: gen})

	tasks := rowTasks(10)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}
	if len(results) != len(tasks) {
		t.Errorf("Expected every task to report, got %d of %d", len(results), len(tasks))
	}
	if err := FirstError(results); !errors.Is(err, context.Canceled) {
		t.Errorf("FirstError = %v, want context.Canceled", err)
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	gen := &mockGenerator{delay: 10 * time.Millisecond}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers:   2,
		Generator: gen,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := rowTasks(3)
	pool.Run(context.Background(), tasks)

	if progressCalls.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d progress callbacks, got %d", len(tasks), progressCalls.Load())
	}
	if lastCompleted != len(tasks) || lastTotal != len(tasks) {
		t.Errorf("Expected final %d/%d, got %d/%d", len(tasks), len(tasks), lastCompleted, lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	gen := &mockGenerator{}
	pool := New(Config{Workers: 2, Generator: gen})

	if results := pool.Run(context.Background(), nil); len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if gen.callCount.Load() != 0 {
		t.Errorf("Expected 0 generator calls, got %d", gen.callCount.Load())
	}
}

func TestTasks_CarriesForce(t *testing.T) {
	coords := []tile.Coords{tile.NewCoords(0, 0, 0), tile.NewCoords(1, -1, 0)}
	tasks := Tasks(coords, true)

	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if !task.Force || task.Coords != coords[i] {
			t.Errorf("task %d = %+v", i, task)
		}
	}
}
