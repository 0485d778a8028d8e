// Package app is the frontend-agnostic application layer shared by the
// GUI and the CLI. A Controller owns the storage backend, the expansion
// state, the current tree and the open document. User actions run their
// backend calls on worker goroutines (see Dispatcher); results are applied
// on a single consumer loop, the only goroutine that touches controller
// state.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/blogdesk/mdxmanager/internal/cloud/storage"
	"github.com/blogdesk/mdxmanager/internal/constants"
	"github.com/blogdesk/mdxmanager/internal/events"
	"github.com/blogdesk/mdxmanager/internal/http"
	"github.com/blogdesk/mdxmanager/internal/logging"
	"github.com/blogdesk/mdxmanager/internal/tree"
)

// Options configures a Controller.
type Options struct {
	Backend  storage.Backend
	Notifier Notifier
	Bus      *events.EventBus
	Logger   *logging.Logger

	// Context is handed to every backend call. Default: context.Background().
	Context context.Context

	// Expansion is reused when given, so a new controller keeps the
	// folders the user had open.
	Expansion *tree.Expansion

	// Exec runs a result application. The GUI sets it to marshal onto
	// its main thread; the default calls fn directly.
	Exec func(fn func())
}

// Controller is the application state machine.
type Controller struct {
	backend  storage.Backend
	notifier Notifier
	bus      *events.EventBus
	logger   *logging.Logger
	ctx      context.Context
	exec     func(func())

	dispatcher *Dispatcher
	expansion  *tree.Expansion

	objects []storage.Object
	forest  *tree.Forest
	filter  string
	doc     *Document
	busy    int
	status  string
}

// New creates a controller. Backend is required.
func New(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	c := &Controller{
		backend:    opts.Backend,
		notifier:   opts.Notifier,
		bus:        opts.Bus,
		logger:     logging.OrNop(opts.Logger),
		ctx:        opts.Context,
		exec:       opts.Exec,
		dispatcher: NewDispatcher(constants.ResultQueueBuffer),
		expansion:  opts.Expansion,
	}
	if c.notifier == nil {
		c.notifier = NopNotifier{}
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	if c.exec == nil {
		c.exec = func(fn func()) { fn() }
	}
	if c.expansion == nil {
		c.expansion = tree.NewExpansion()
	}
	c.forest = tree.Build(nil, c.expansion, tree.Options{})
	return c, nil
}

// Backend returns the storage backend.
func (c *Controller) Backend() storage.Backend { return c.backend }

// Expansion returns the expansion state shared across rebuilds.
func (c *Controller) Expansion() *tree.Expansion { return c.expansion }

// Forest returns the unfiltered tree from the last refresh.
func (c *Controller) Forest() *tree.Forest { return c.forest }

// View returns the tree the UI should show: the forest with the current
// filter applied.
func (c *Controller) View() *tree.Forest { return c.forest.Filter(c.filter) }

// Filter returns the current search query.
func (c *Controller) Filter() string { return c.filter }

// Document returns the open document, or nil.
func (c *Controller) Document() *Document { return c.doc }

// Busy reports whether any operation is still running.
func (c *Controller) Busy() bool { return c.busy > 0 }

// StatusText returns the last status message.
func (c *Controller) StatusText() string { return c.status }

// Objects returns the raw listing from the last refresh.
func (c *Controller) Objects() []storage.Object { return c.objects }

// Pending counts started actions whose result has not been applied.
func (c *Controller) Pending() int { return c.dispatcher.Pending() }

// Run applies results until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-c.dispatcher.Results():
			c.apply(r)
		}
	}
}

// RunUntilIdle applies results until no action is pending. Actions
// started while applying (a refresh after an upload) are waited for too.
func (c *Controller) RunUntilIdle(ctx context.Context) error {
	for c.dispatcher.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-c.dispatcher.Results():
			c.apply(r)
		}
	}
	return nil
}

// Step applies at most one queued result without blocking.
func (c *Controller) Step() bool {
	select {
	case r := <-c.dispatcher.Results():
		c.apply(r)
		return true
	default:
		return false
	}
}

func (c *Controller) apply(r Result) {
	c.exec(func() {
		defer c.dispatcher.done()
		r.Apply(c)
	})
}

// setStatus updates the status line everywhere.
func (c *Controller) setStatus(msg string) {
	c.status = msg
	c.notifier.Status(msg, c.busy > 0)
	c.bus.PublishStatus(msg, c.busy > 0)
}

// op is the bookkeeping shared by every action.
type op struct {
	name    string
	key     string
	started time.Time
}

// begin marks the controller busy and announces the action.
func (c *Controller) begin(name, key, status string) op {
	c.busy++
	c.setStatus(status)
	c.bus.PublishOperation(events.EventOperationStarted, name, key, 0, nil)
	c.logger.Debug().Str("op", name).Str("key", key).Msg("operation started")
	return op{name: name, key: key, started: time.Now()}
}

// finish clears the busy mark and reports the outcome. On failure the
// user sees title and "prefix: err" plus a hint when one applies.
func (c *Controller) finish(o op, err error, status, title, prefix string) {
	if c.busy > 0 {
		c.busy--
	}
	d := time.Since(o.started)
	if err != nil {
		c.bus.PublishOperation(events.EventOperationFailed, o.name, o.key, d, err)
		c.logger.Error().Err(err).Str("op", o.name).Str("key", o.key).Msg("operation failed")
		c.setStatus(status)
		msg := fmt.Sprintf("%s: %v", prefix, err)
		if hint := http.Hint(err); hint != "" {
			msg += "\n\n" + hint
		}
		c.notifier.Error(title, msg)
		return
	}
	c.bus.PublishOperation(events.EventOperationCompleted, o.name, o.key, d, nil)
	c.logger.Info().Str("op", o.name).Str("key", o.key).Dur("took", d).Msg(status)
	c.setStatus(status)
}

// warn reports a refused action that never reached the backend.
func (c *Controller) warn(title, msg string) {
	c.logger.Warn().Msg(msg)
	c.notifier.Error(title, msg)
}

// rebuild replaces the forest from the cached listing. It runs on the
// consumer loop, which is fine while buckets hold at most a few thousand
// objects; past TreeRebuildSoftLimit a warning is logged.
func (c *Controller) rebuild() {
	if n := len(c.objects); n > constants.TreeRebuildSoftLimit {
		c.logger.Warn().Int("objects", n).Msg("large bucket: tree rebuilds may make the UI sluggish")
	}
	c.forest = tree.Build(c.objects, c.expansion, tree.Options{PublicURL: c.backend.PublicURL})
	if len(c.forest.Skipped) > 0 {
		c.logger.Warn().Strs("keys", c.forest.Skipped).Msg("keys skipped while building the tree")
	}
	c.bus.PublishTreeRebuilt(len(c.forest.Folders()), len(c.forest.Files()), len(c.forest.Skipped))
	c.notifier.TreeChanged()
}
