// Package taskgroup runs independent tasks concurrently and waits for all of
// them. Unlike errgroup.WithContext it never cancels siblings on failure:
// every task runs to completion and its error is returned as a value.
package taskgroup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

// Task is a unit of work submitted to Run.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes every task and returns one Result per task, aligned with the
// submission order. limit caps the number of tasks in flight; limit <= 0
// means no cap. A panicking task is reported as an error in its slot.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result[T]{Err: fmt.Errorf("task %d panicked: %v", i, r)}
				}
			}()
			v, err := task(ctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Join runs heterogeneous functions concurrently and returns their errors in
// argument order. Each function writes its own result through a closure.
func Join(fns ...func() error) []error {
	errs := make([]error, len(fns))

	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			errs[i] = fn()
			return nil
		})
	}

	_ = g.Wait()
	return errs
}
