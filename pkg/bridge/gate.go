package bridge

import (
	"context"
	"sync"
)

// Reason explains why execution stopped.
type Reason string

const (
	ReasonBreakpoint Reason = "breakpoint"
	ReasonStep       Reason = "step"
)

// Stop describes the point where execution is paused.
type Stop struct {
	Task         string
	Reason       Reason
	BreakpointID int
	Detail       TaskDetail
}

// BreakpointSource decides whether a task about to run hits a breakpoint.
type BreakpointSource interface {
	Hit(task string, env map[string]any) (id int, ok bool)
}

// Gate withholds "ready to run" notifications while the debugger is
// paused. At most one pause exists at a time.
type Gate struct {
	bps    BreakpointSource
	onStop func(Stop)

	mu     sync.Mutex
	step   bool
	closed bool
	pause  *pause
}

type pause struct {
	stop    Stop
	release chan struct{}
	once    sync.Once
}

func (p *pause) resolve() {
	p.once.Do(func() { close(p.release) })
}

// NewGate creates a gate consulting bps. onStop is called, outside any
// lock, every time execution pauses.
func NewGate(bps BreakpointSource, onStop func(Stop)) *Gate {
	if onStop == nil {
		onStop = func(Stop) {}
	}
	return &Gate{bps: bps, onStop: onStop}
}

// ReadyToRun is called before the engine runs a task. It returns at once
// unless the task hits a breakpoint or a step is pending; then it reports
// the stop and blocks until Continue, Next or Close releases it, or ctx
// ends.
func (g *Gate) ReadyToRun(ctx context.Context, d TaskDetail) error {
	g.mu.Lock()
	if g.closed || g.pause != nil {
		g.mu.Unlock()
		return nil
	}
	stop := Stop{Task: d.Name, Detail: d}
	if id, ok := g.hit(d); ok {
		stop.Reason = ReasonBreakpoint
		stop.BreakpointID = id
	} else if g.step {
		stop.Reason = ReasonStep
	} else {
		g.mu.Unlock()
		return nil
	}
	g.step = false
	p := &pause{stop: stop, release: make(chan struct{})}
	g.pause = p
	g.mu.Unlock()

	g.onStop(stop)

	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.pause == p {
			g.pause = nil
		}
		g.mu.Unlock()
		p.resolve()
		return ctx.Err()
	}
}

func (g *Gate) hit(d TaskDetail) (int, bool) {
	if g.bps == nil {
		return 0, false
	}
	return g.bps.Hit(d.Name, d.Env())
}

// Continue resumes execution. It reports whether execution was paused.
func (g *Gate) Continue() bool {
	return g.resume(false)
}

// Next resumes execution and pauses again before the next task runs. It
// does nothing unless execution is paused.
func (g *Gate) Next() bool {
	return g.resume(true)
}

func (g *Gate) resume(step bool) bool {
	g.mu.Lock()
	p := g.pause
	if g.closed || p == nil {
		g.mu.Unlock()
		return false
	}
	g.step = step
	g.pause = nil
	g.mu.Unlock()
	p.resolve()
	return true
}

// Close releases any pause and lets every later notification through.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.step = false
	p := g.pause
	g.pause = nil
	g.mu.Unlock()
	if p != nil {
		p.resolve()
	}
}

// Paused returns the current stop, if execution is paused.
func (g *Gate) Paused() (Stop, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pause == nil {
		return Stop{}, false
	}
	return g.pause.stop, true
}
