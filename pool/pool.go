// Package pool runs tasks from a shared FIFO queue on a bounded number
// of worker goroutines and delivers one tagged result per task.
package pool

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Queue is a FIFO queue of the task indices 0..n-1. It only hands out
// the next index, so its size does not depend on n.
type Queue struct {
	mu   sync.Mutex
	next int
	n    int
}

// NewQueue returns a queue holding the tasks 0..n-1.
func NewQueue(n int) *Queue {
	if n < 0 {
		n = 0
	}
	return &Queue{n: n}
}

// Next returns the next task. It never blocks; ok is false when the
// queue is empty.
func (q *Queue) Next() (task int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= q.n {
		return 0, false
	}
	task = q.next
	q.next++
	return task, true
}

// Len returns the number of tasks left.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n - q.next
}

// Result is the outcome of one task: a value or an error.
type Result[T any] struct {
	// Worker is the index of the worker which ran the task.
	Worker int
	// Task is the task index.
	Task  int
	Value T
	Err   error
}

// Func runs one task on a worker.
type Func[T any] func(ctx context.Context, worker, task int) (T, error)

// PanicError is the error of a task which panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Pool is a running set of workers.
type Pool[T any] struct {
	results chan Result[T]
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	once    sync.Once
}

// Workers returns n, or the number of CPUs if n is not positive.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Start starts n workers (see Workers) pulling tasks from q. A worker
// stops when the queue is empty, after its task failed, or when the
// pool is terminated. Termination is checked before every dequeue and
// while a result waits to be delivered; the context passed to fn is
// cancelled as well.
func Start[T any](ctx context.Context, n int, q *Queue, fn Func[T]) *Pool[T] {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	p := &Pool[T]{
		results: make(chan Result[T]),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for w := 0; w < Workers(n); w++ {
		w := w
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				task, ok := q.Next()
				if !ok {
					return nil
				}
				v, err := call(ctx, fn, w, task)
				select {
				case p.results <- Result[T]{Worker: w, Task: task, Value: v, Err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
				if err != nil {
					return err
				}
			}
		})
	}
	go func() {
		p.err = g.Wait()
		close(p.results)
		close(p.done)
	}()
	return p
}

// call runs fn and turns a panic into a *PanicError.
func call[T any](ctx context.Context, fn Func[T], w, task int) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, w, task)
}

// Results returns the channel of results. It is closed after all
// workers stopped.
func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Terminate asks all workers to stop.
func (p *Pool[T]) Terminate() {
	p.once.Do(p.cancel)
}

// Wait waits until all workers stopped and returns the first error
// which stopped a worker. Results not yet received are discarded.
func (p *Pool[T]) Wait() error {
	for range p.results {
	}
	<-p.done
	p.Terminate()
	return p.err
}
