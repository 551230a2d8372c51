// Package bgtask runs tracked background goroutines with a shared lifecycle.
//
// Every task gets a context that is canceled on Shutdown, and a panic inside
// a task is logged with its stack instead of taking the process down.
package bgtask

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// BackgroundTask manages a collection of goroutines with shared lifecycle.
type BackgroundTask struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	tasks  atomic.Int64
	logger *zerolog.Logger
}

// New returns a BackgroundTask whose tasks log through logger.
func New(logger *zerolog.Logger) *BackgroundTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundTask{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Run executes fn in a goroutine and tracks it until it returns.
// fn receives a context that is canceled when Shutdown starts.
func (bt *BackgroundTask) Run(name string, fn func(shutdownCtx context.Context)) {
	bt.wg.Add(1)
	bt.tasks.Add(1)
	go func() {
		defer func() {
			defer bt.wg.Done()
			defer bt.tasks.Add(-1)
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				bt.logger.Error().
					Stack().
					Err(errors.WithStack(err)).
					Str("task", name).
					Msg("background task panicked")
			}
		}()
		fn(bt.ctx)
	}()
}

// Every runs fn on each tick of interval until shutdown.
func (bt *BackgroundTask) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	bt.Run(name, func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	})
}

// Tasks reports how many tasks are still running.
func (bt *BackgroundTask) Tasks() int64 {
	return bt.tasks.Load()
}

// Shutdown cancels all running tasks and waits for them to finish.
// It returns an error if some are still running after timeout.
func (bt *BackgroundTask) Shutdown(timeout time.Duration) error {
	bt.cancel()
	wait := make(chan struct{})
	go func() {
		bt.wg.Wait()
		close(wait)
	}()
	select {
	case <-wait:
		return nil
	case <-time.After(timeout):
		return errors.Errorf("shutdown timeout, some background tasks may not have finished, count=%d", bt.Tasks())
	}
}
