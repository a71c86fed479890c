package fanout

import (
	"context"
	"sync"
)

// Task is a single unit of fan-out work.
type Task func(ctx context.Context) error

// Run executes tasks with bounded concurrency and returns one error slot per
// task, positionally aligned with the input. A failing task never prevents the
// remaining tasks from running; context cancellation marks unstarted tasks
// with the context error.
func Run(ctx context.Context, tasks []Task, concurrency int) []error {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	results := make([]error, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, t Task) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = t(ctx)
		}(i, task)
	}
	wg.Wait()

	return results
}
