package app

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// TaskGroup runs named tasks in their own goroutines. A panicking task is
// recovered and logged, never restarted; the rest keep running.
type TaskGroup struct {
	wg sync.WaitGroup
}

// Go launches fn under the group. Errors other than cancellation are
// logged when the task stops.
func (g *TaskGroup) Go(ctx context.Context, name string, fn func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logs.Errorf("task %s panicked: %v\n%s", name, r, debug.Stack())
			}
		}()

		err := fn(ctx)
		switch {
		case err == nil:
			logs.Infof("task %s finished", name)
		case errors.Is(err, context.Canceled):
			logs.Infof("task %s cancelled", name)
		default:
			logs.Errorf("task %s stopped, err: %+v", name, err)
		}
	}()
}

// Wait blocks until every launched task has returned.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}
