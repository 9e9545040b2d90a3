package debugger

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ormasoftchile/pipedbg/pkg/breakpoints"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
	"github.com/ormasoftchile/pipedbg/pkg/session"
)

// handleRun launches the pipeline. It returns once the entry task is posted.
func (d *Debugger) handleRun(ctx context.Context) {
	if d.sess.State() != session.StateIdle {
		d.printf("Already started.\n")
		return
	}
	d.printf("Launching %s...\n", d.args.Task)
	if err := d.sess.Launch(ctx, d.args); err != nil {
		d.printf("Error: %v\n", err)
		return
	}
	d.printf("Running.\n")
}

// handleBreak sets a breakpoint: break <file>:<line> [if <condition>] or
// break <task> [if <condition>].
func (d *Debugger) handleBreak(args []string) {
	if len(args) == 0 {
		d.printf("Usage: break <file>:<line> | break <task> [if <condition>]\n")
		return
	}
	target, condition := args[0], ""
	if len(args) > 1 {
		if args[1] != "if" || len(args) < 3 {
			d.printf("Usage: break <file>:<line> | break <task> [if <condition>]\n")
			return
		}
		condition = strings.Join(args[2:], " ")
	}

	file, line, err := d.target(target)
	if err != nil {
		d.printf("Error: %v\n", err)
		return
	}
	bp := d.sess.Breakpoints().Add(file, line, condition)
	d.printf("  %s\n", d.describe(bp))
}

// handleClear removes breakpoints: clear <file>[:<line>] or clear <id>.
func (d *Debugger) handleClear(args []string) {
	if len(args) != 1 {
		d.printf("Usage: clear <file>[:<line>] | clear <id>\n")
		return
	}
	store := d.sess.Breakpoints()
	if id, err := strconv.Atoi(args[0]); err == nil {
		if _, ok := store.RemoveID(id); !ok {
			d.printf("No breakpoint %d.\n", id)
			return
		}
		d.printf("Deleted breakpoint %d.\n", id)
		return
	}

	path, lineText, hasLine := strings.Cut(args[0], ":")
	file := d.path(path)
	if !hasLine {
		store.Clear(file)
		d.printf("Deleted breakpoints in %s.\n", path)
		return
	}
	line, err := strconv.Atoi(lineText)
	if err != nil {
		d.printf("Error: invalid line %q\n", lineText)
		return
	}
	if !store.Remove(file, line) {
		d.printf("No breakpoint at %s.\n", args[0])
		return
	}
	d.printf("Deleted breakpoint at %s.\n", args[0])
}

// handleBreakpoints lists every breakpoint.
func (d *Debugger) handleBreakpoints() {
	bps := d.sess.Breakpoints().List()
	if len(bps) == 0 {
		d.printf("No breakpoints set.\n")
		return
	}
	for _, bp := range bps {
		d.printf("  %s\n", d.describe(bp))
	}
}

// handleStack shows the frame of the paused task.
func (d *Debugger) handleStack() {
	frames, _ := d.sess.StackTrace(0, 0)
	if len(frames) == 0 {
		d.printf("Not paused.\n")
		return
	}
	for i, f := range frames {
		d.printf("  #%d %s at %s:%d\n", i, taskStyle.Render(f.Name), d.rel(f.Source), f.Line)
	}
}

// handleThreads lists the session's threads.
func (d *Debugger) handleThreads() {
	for _, t := range d.sess.Threads() {
		d.printf("  * %d %s\n", t.ID, t.Name)
	}
}

// handleTasks lists the indexed tasks, optionally those containing filter.
func (d *Debugger) handleTasks(args []string) {
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	idx := d.tasks()
	n := 0
	for _, name := range idx.Tasks() {
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		decl, _ := idx.Lookup(name)
		d.printf("  %s  %s\n", taskStyle.Render(name), dimStyle.Render(location(idx, decl.File, decl.Line)))
		n++
	}
	if n == 0 {
		d.printf("No tasks found.\n")
	}
}

// handleHelp displays available commands.
func (d *Debugger) handleHelp() {
	d.printf("Available commands:\n")
	d.printf("  run (r)          Launch the pipeline on the engine\n")
	d.printf("  continue (c)     Resume until the next breakpoint\n")
	d.printf("  next (n)         Resume and pause before the next task\n")
	d.printf("  break (b)        Set a breakpoint: break <file>:<line> | break <task> [if <condition>]\n")
	d.printf("  clear            Delete breakpoints: clear <file>[:<line>] | clear <id>\n")
	d.printf("  breakpoints (bl) List breakpoints\n")
	d.printf("  stack (bt)       Show the paused task\n")
	d.printf("  threads          List threads\n")
	d.printf("  tasks [filter]   List indexed tasks\n")
	d.printf("  help (?)         Show this help\n")
	d.printf("  quit (q)         Stop the pipeline and exit\n")
}

// target resolves a break argument to a file and line.
func (d *Debugger) target(arg string) (string, int, error) {
	if path, lineText, ok := strings.Cut(arg, ":"); ok {
		line, err := strconv.Atoi(lineText)
		if err != nil || line < 1 {
			return "", 0, fmt.Errorf("invalid line %q", lineText)
		}
		return d.path(path), line, nil
	}
	decl, ok := d.tasks().Lookup(arg)
	if !ok {
		return "", 0, fmt.Errorf("unknown task %q", arg)
	}
	return decl.File, decl.Line, nil
}

// path resolves a path relative to the resource directory.
func (d *Debugger) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.args.Resource, p)
}

func (d *Debugger) rel(path string) string {
	return relTo(d.tasks(), path)
}

func (d *Debugger) describe(bp breakpoints.Breakpoint) string {
	glyph := pendingStyle.Render(GlyphPending)
	if bp.Verified {
		glyph = verifiedStyle.Render(GlyphVerified)
	}
	s := fmt.Sprintf("%s [%d] %s:%d", glyph, bp.ID, d.rel(bp.Source), bp.Line)
	if bp.Task != "" {
		s += " " + taskStyle.Render(bp.Task)
	}
	if bp.Condition != "" {
		s += " if " + bp.Condition
	}
	if bp.Message != "" {
		s += " " + dimStyle.Render("("+bp.Message+")")
	}
	return s
}

func location(idx *pipeline.Index, file string, line int) string {
	return fmt.Sprintf("%s:%d", relTo(idx, file), line)
}

func relTo(idx *pipeline.Index, path string) string {
	if idx == nil {
		return path
	}
	if rel, err := filepath.Rel(filepath.FromSlash(idx.Root()), filepath.FromSlash(path)); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}
