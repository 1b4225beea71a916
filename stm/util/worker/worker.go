package worker

import (
	"sync"

	"github.com/ngaut/log"

	"github.com/tinystm/tinystm/stm"
)

// TaskStop stops the worker that receives it.
type TaskStop struct{}

type Task interface{}

// Handler processes tasks on one worker. The context passed in belongs to
// that worker's goroutine; transactions started on it must not escape the
// call.
type Handler interface {
	Handle(ctx *stm.Context, t Task)
}

// Pool is a fixed set of workers draining a shared task channel. Each worker
// owns its own transaction context, keeping to the one-transaction-per-thread
// rule of the runtime.
type Pool struct {
	name     string
	size     int
	sender   chan<- Task
	receiver <-chan Task
	rt       *stm.Runtime
	wg       sync.WaitGroup
}

const defaultPoolCapacity = 128

// NewPool creates a pool of size workers bound to rt.
func NewPool(name string, rt *stm.Runtime, size int) *Pool {
	ch := make(chan Task, defaultPoolCapacity)
	return &Pool{
		name:     name,
		size:     size,
		sender:   (chan<- Task)(ch),
		receiver: (<-chan Task)(ch),
		rt:       rt,
	}
}

// Start launches the workers.
func (p *Pool) Start(handler Handler) {
	log.Debugf("starting pool %s with %d workers", p.name, p.size)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			ctx := stm.NewContext(p.rt)
			for {
				task := <-p.receiver
				if _, ok := task.(TaskStop); ok {
					return
				}
				handler.Handle(ctx, task)
			}
		}()
	}
}

// Sender returns the channel tasks are posted on.
func (p *Pool) Sender() chan<- Task {
	return p.sender
}

// Stop shuts every worker down and waits for them to drain.
func (p *Pool) Stop() {
	for i := 0; i < p.size; i++ {
		p.sender <- TaskStop{}
	}
	p.wg.Wait()
}
