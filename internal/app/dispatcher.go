package app

import (
	"sync/atomic"

	"github.com/blogdesk/mdxmanager/internal/constants"
)

// Result is produced by a worker and applied on the consumer loop.
// Apply is the only place results may touch controller state.
type Result interface {
	Apply(c *Controller)
}

// Dispatcher runs one goroutine per user action and queues the results.
type Dispatcher struct {
	results chan Result
	pending atomic.Int64
}

// NewDispatcher creates a dispatcher with a buffered result queue.
func NewDispatcher(buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = constants.ResultQueueBuffer
	}
	return &Dispatcher{results: make(chan Result, buffer)}
}

// Go runs work on a new goroutine and queues its result. A nil result is
// replaced with a no-op so Pending stays balanced.
func (d *Dispatcher) Go(work func() Result) {
	d.pending.Add(1)
	go func() {
		r := work()
		if r == nil {
			r = noResult{}
		}
		d.results <- r
	}()
}

// Results is the queue the consumer loop drains.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Pending counts actions whose result has not been applied yet.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// done marks one queued result as applied.
func (d *Dispatcher) done() {
	d.pending.Add(-1)
}

type noResult struct{}

func (noResult) Apply(*Controller) {}
