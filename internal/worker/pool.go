package worker

import (
	"context"
	"sync"
)

// Job produces one output. It should return promptly once ctx is done.
type Job[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	JobID  string
	Output T
	Err    error
}

// Pool runs submitted jobs on a fixed number of goroutines. Results arrive in
// completion order; the results channel is closed after Close once every
// submitted job has finished.
type Pool[T any] struct {
	ctx     context.Context
	jobs    chan jobWrapper[T]
	results chan Result[T]
	wg      sync.WaitGroup
	once    sync.Once
}

type jobWrapper[T any] struct {
	id string
	fn Job[T]
}

func NewPool[T any](ctx context.Context, workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool[T]{
		ctx:     ctx,
		jobs:    make(chan jobWrapper[T], bufferSize),
		results: make(chan Result[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		var result Result[T]
		result.JobID = job.id
		if err := p.ctx.Err(); err != nil {
			result.Err = err
		} else {
			result.Output, result.Err = job.fn(p.ctx)
		}
		p.results <- result
	}
}

// Submit queues a job. It blocks while the queue is full and must not be
// called after Close.
func (p *Pool[T]) Submit(id string, fn Job[T]) {
	p.jobs <- jobWrapper[T]{id: id, fn: fn}
}

// Close stops accepting jobs. Already queued jobs still run.
func (p *Pool[T]) Close() {
	p.once.Do(func() { close(p.jobs) })
}

func (p *Pool[T]) Results() <-chan Result[T] {
	return p.results
}

// Run submits every job, waits for all of them and returns the results in
// submission order.
func Run[T any](ctx context.Context, workerCount int, ids []string, fn func(ctx context.Context, id string) (T, error)) []Result[T] {
	pool := NewPool[T](ctx, workerCount, len(ids))
	for _, id := range ids {
		id := id
		pool.Submit(id, func(ctx context.Context) (T, error) {
			return fn(ctx, id)
		})
	}
	pool.Close()

	index := make(map[string][]int, len(ids))
	for i, id := range ids {
		index[id] = append(index[id], i)
	}
	ordered := make([]Result[T], len(ids))
	for result := range pool.Results() {
		slots := index[result.JobID]
		ordered[slots[0]] = result
		index[result.JobID] = slots[1:]
	}
	return ordered
}
