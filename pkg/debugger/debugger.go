// Package debugger implements the interactive console debugger for pipelines.
package debugger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/ormasoftchile/pipedbg/pkg/breakpoints"
	"github.com/ormasoftchile/pipedbg/pkg/bridge"
	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
	"github.com/ormasoftchile/pipedbg/pkg/session"
)

// Debugger is a line-oriented front end for one debug session.
type Debugger struct {
	args  config.LaunchArgs
	sess  *session.Controller
	index *pipeline.Index

	outMu  sync.Mutex
	output io.Writer
	rl     *readline.Instance
	done   chan struct{}
	once   sync.Once
}

// New creates a debugger for args. newSession builds the session the
// debugger drives; the debugger receives its events.
func New(args config.LaunchArgs, newSession func(session.Events) *session.Controller) (*Debugger, error) {
	dialect, ok := pipeline.DialectByName(args.Dialect)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", args.Dialect)
	}
	d := &Debugger{
		args:   args,
		output: os.Stdout,
		done:   make(chan struct{}),
	}
	d.sess = newSession(d)

	// Built up front so tasks can be listed and breakpoints verified before
	// the run starts. A launch replaces it.
	idx, err := pipeline.Build(args.Resource, dialect)
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	d.index = idx
	d.sess.Breakpoints().SetIndex(idx)
	return d, nil
}

// Session returns the session driven by the debugger.
func (d *Debugger) Session() *session.Controller {
	return d.sess
}

// Run starts the interactive REPL loop. The session is terminated when the
// loop ends.
func (d *Debugger) Run(ctx context.Context) error {
	commands := []string{"run", "continue", "next", "break", "clear", "breakpoints",
		"stack", "threads", "tasks", "help", "quit"}

	var completer = readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children,
			readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()
	d.setOutput(rl.Stdout())
	defer func() { _ = d.sess.Terminate(context.WithoutCancel(ctx)) }()

	d.printf("%s %d tasks in %s, entry %s\n", headerStyle.Render("pipedbg"), d.index.Len(), d.index.Root(), d.args.Task)
	d.printf("Type 'help' for available commands, 'run' to start the pipeline.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}
		if quit := d.exec(ctx, line); quit {
			return nil
		}
	}
}

// exec runs one command line. It reports whether the user asked to quit.
func (d *Debugger) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}

	switch parts[0] {
	case "run", "r":
		d.handleRun(ctx)
	case "continue", "c":
		if !d.sess.Continue() {
			d.printf("Not paused.\n")
		}
	case "next", "n", "step", "s":
		if !d.sess.Next() {
			d.printf("Not paused.\n")
		}
	case "break", "b":
		d.handleBreak(parts[1:])
	case "clear":
		d.handleClear(parts[1:])
	case "breakpoints", "bl":
		d.handleBreakpoints()
	case "stack", "bt":
		d.handleStack()
	case "threads":
		d.handleThreads()
	case "tasks":
		d.handleTasks(parts[1:])
	case "help", "?":
		d.handleHelp()
	case "quit", "q":
		if err := d.sess.Terminate(ctx); err != nil {
			d.printf("Error: %v\n", err)
		}
		d.printf("Exiting debugger.\n")
		return true
	default:
		d.printf("Unknown command: %q. Type 'help' for available commands.\n", parts[0])
	}
	return false
}

// buildPrompt creates the prompt string: pipedbg[state | task]>
func (d *Debugger) buildPrompt() string {
	if stop, ok := d.sess.Paused(); ok {
		return fmt.Sprintf("pipedbg[paused | %s]> ", stop.Task)
	}
	return fmt.Sprintf("pipedbg[%s]> ", d.sess.State())
}

// tasks returns the session's index once launched, else the one built at
// startup.
func (d *Debugger) tasks() *pipeline.Index {
	if idx := d.sess.Index(); idx != nil {
		return idx
	}
	return d.index
}

// Done is closed once the session has terminated.
func (d *Debugger) Done() <-chan struct{} {
	return d.done
}

// ─── Session events ─────────────────────────────────────────────────────

// Output implements session.Events.
func (d *Debugger) Output(text string) {
	d.printf("%s\n", dimStyle.Render(text))
}

// Stopped implements session.Events.
func (d *Debugger) Stopped(stop bridge.Stop) {
	where := ""
	if decl, ok := d.tasks().Lookup(stop.Task); ok {
		where = fmt.Sprintf(" at %s", location(d.tasks(), decl.File, decl.Line))
	}
	switch stop.Reason {
	case bridge.ReasonBreakpoint:
		d.printf("%s breakpoint %d hit before %s%s\n", stoppedStyle.Render(GlyphStopped), stop.BreakpointID, taskStyle.Render(stop.Task), where)
	default:
		d.printf("%s stepped to %s%s\n", stoppedStyle.Render(GlyphStopped), taskStyle.Render(stop.Task), where)
	}
	d.refresh()
}

// BreakpointChanged implements session.Events.
func (d *Debugger) BreakpointChanged(bp breakpoints.Breakpoint) {
	d.printf("  %s\n", d.describe(bp))
}

// Terminated implements session.Events.
func (d *Debugger) Terminated() {
	d.printf("%s\n", errorStyle.Render("Session terminated."))
	d.once.Do(func() { close(d.done) })
	d.refresh()
}

func (d *Debugger) setOutput(w io.Writer) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	d.output = w
}

func (d *Debugger) printf(format string, args ...any) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	fmt.Fprintf(d.output, format, args...)
}

func (d *Debugger) refresh() {
	if d.rl != nil {
		d.rl.SetPrompt(d.buildPrompt())
		d.rl.Refresh()
	}
}
