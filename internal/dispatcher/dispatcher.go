// Package dispatcher fans crawl jobs out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
)

// ErrBusy is returned by Enqueue when every queue slot is taken.
var ErrBusy = errors.New("dispatcher busy")

// Runner is a long-lived queue consumer. *worker.Worker satisfies it.
type Runner interface {
	Run(ctx context.Context)
}

// nonBlocking is implemented by queues that can refuse work immediately.
type nonBlocking interface {
	TryEnqueue(item crawler.QueueItem) error
}

// Dispatcher owns the job queue and the worker pool draining it.
type Dispatcher struct {
	queue   crawler.Queue
	workers []Runner
}

// New creates a Dispatcher.
func New(queue crawler.Queue, workers []Runner) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Pool builds size workers with newRunner. size below 1 yields one worker.
func Pool(size int, newRunner func(index int) Runner) []Runner {
	if size < 1 {
		size = 1
	}
	runners := make([]Runner, 0, size)
	for i := range size {
		runners = append(runners, newRunner(i))
	}
	return runners
}

// Run starts all workers and blocks until every one of them has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue hands the item to the queue. Queues that support it are asked
// without blocking and a full queue surfaces as ErrBusy.
func (d *Dispatcher) Enqueue(ctx context.Context, item crawler.QueueItem) error {
	if q, ok := d.queue.(nonBlocking); ok {
		if err := q.TryEnqueue(item); err != nil {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return nil
	}
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
