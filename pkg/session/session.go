// Package session drives one debug session: it launches the pipeline on
// the engine, relays pauses to the client and tears everything down on
// terminate.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ormasoftchile/pipedbg/pkg/breakpoints"
	"github.com/ormasoftchile/pipedbg/pkg/bridge"
	"github.com/ormasoftchile/pipedbg/pkg/engine"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StatePaused
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ThreadID is the id of the only thread a session reports.
const ThreadID = 1

// Events receives what a session reports to its client.
type Events interface {
	Output(text string)
	Stopped(stop bridge.Stop)
	BreakpointChanged(bp breakpoints.Breakpoint)
	Terminated()
}

// Thread is a thread of the debuggee.
type Thread struct {
	ID   int
	Name string
}

// Frame is a stack frame of the paused execution point.
type Frame struct {
	ID     int
	Name   string
	Source string
	Line   int
	Column int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithPollInterval sets the callback poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithWatch rebuilds the task index whenever the pipeline changes on disk.
func WithWatch(watch bool) Option {
	return func(c *Controller) { c.watch = watch }
}

// WithDialect sets the dialect used when launch arguments name none.
func WithDialect(name string) Option {
	return func(c *Controller) { c.dialect = name }
}

// Controller owns one debug session.
type Controller struct {
	eng      engine.Engine
	events   Events
	store    *breakpoints.Store
	gate     *bridge.Gate
	logger   *slog.Logger
	interval time.Duration
	watch    bool
	dialect  string

	mu            sync.Mutex
	state         State
	expectingStop bool
	instance      engine.InstanceID
	releases      []release
	launchDone    chan struct{}
	cancelRun     context.CancelFunc

	finishOnce sync.Once
}

type release struct {
	name string
	fn   func(ctx context.Context) error
}

// New creates an idle session driving eng.
func New(eng engine.Engine, events Events, opts ...Option) *Controller {
	if events == nil {
		events = nopEvents{}
	}
	c := &Controller{
		eng:    eng,
		events: events,
		store:  breakpoints.New(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.gate = bridge.NewGate(c.store, c.events.Stopped)
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateRunning {
		if _, paused := c.gate.Paused(); paused {
			return StatePaused
		}
	}
	return state
}

// Breakpoints returns the session's breakpoint store.
func (c *Controller) Breakpoints() *breakpoints.Store { return c.store }

// Index returns the current task index, or nil before a resource loads.
func (c *Controller) Index() *pipeline.Index { return c.store.Index() }

// SetBreakpoints replaces the breakpoints of source.
func (c *Controller) SetBreakpoints(source string, specs []breakpoints.Spec) []breakpoints.Breakpoint {
	return c.store.Set(source, specs)
}

// Continue resumes a paused execution. It reports whether execution was
// paused.
func (c *Controller) Continue() bool {
	return c.gate.Continue()
}

// Next resumes a paused execution and pauses before the next task. Step
// in and step out behave the same.
func (c *Controller) Next() bool {
	return c.gate.Next()
}

// Paused returns where execution is paused.
func (c *Controller) Paused() (bridge.Stop, bool) {
	return c.gate.Paused()
}

// Threads always reports a single thread.
func (c *Controller) Threads() []Thread {
	return []Thread{{ID: ThreadID, Name: "main thread"}}
}

// StackTrace returns the frames of the paused execution point: a single
// frame at the paused task's declaration, or none while running. levels
// of zero or less means all frames.
func (c *Controller) StackTrace(start, levels int) ([]Frame, int) {
	stop, ok := c.gate.Paused()
	if !ok {
		return nil, 0
	}
	decl, ok := c.store.Index().Lookup(stop.Task)
	if !ok {
		return nil, 0
	}
	frames := []Frame{{
		ID:     1,
		Name:   decl.Name,
		Source: decl.File,
		Line:   decl.Line,
		Column: decl.Column,
	}}
	total := len(frames)
	if start < 0 {
		start = 0
	}
	if start >= total {
		return nil, total
	}
	end := total
	if levels > 0 && start+levels < end {
		end = start + levels
	}
	return frames[start:end], total
}

// Terminate ends the session. During launch it waits for the launch to
// unwind; afterwards it stops the task, releases any pause and every
// engine handle, then reports termination. It is safe to call repeatedly.
func (c *Controller) Terminate(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.expectingStop = true
	inst := c.instance
	done := c.launchDone
	c.mu.Unlock()

	switch state {
	case StateIdle, StateTerminated:
		return nil
	case StateLaunching:
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.gate.Close()
	if err := c.eng.PostStop(ctx, inst); err != nil {
		c.logger.Warn("post stop failed", "error", err)
	}
	c.finish(ctx, "")
	return nil
}

// finish releases every acquired handle, newest first, and reports
// termination. Only the first call does anything; later calls wait for it.
func (c *Controller) finish(ctx context.Context, message string) {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		c.expectingStop = true
		releases := c.releases
		c.releases = nil
		cancel := c.cancelRun
		c.mu.Unlock()

		c.gate.Close()
		ctx := context.WithoutCancel(ctx)
		for i := len(releases) - 1; i >= 0; i-- {
			r := releases[i]
			if err := r.fn(ctx); err != nil {
				c.logger.Warn("release failed", "handle", r.name, "error", err)
			}
		}
		if cancel != nil {
			cancel()
		}

		c.mu.Lock()
		c.state = StateTerminated
		c.mu.Unlock()

		if message != "" {
			c.events.Output(message)
		}
		c.events.Terminated()
	})
}

func (c *Controller) acquired(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases = append(c.releases, release{name: name, fn: fn})
}

// checkpoint aborts the launch once a terminate request arrived.
func (c *Controller) checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expectingStop {
		return ErrLaunchAborted
	}
	return nil
}

type nopEvents struct{}

func (nopEvents) Output(string) {}
func (nopEvents) Stopped(bridge.Stop) {}
func (nopEvents) BreakpointChanged(breakpoints.Breakpoint) {}
func (nopEvents) Terminated() {}
