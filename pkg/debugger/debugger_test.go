package debugger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/engine/enginetest"
	"github.com/ormasoftchile/pipedbg/pkg/session"
)

const mainJSON = `{"t1": {
  "next": ["t2"]
},

"t2": {
  "next": ["t3"]
},
"t3": {}
}
`

// syncBuffer is a bytes.Buffer safe for the session's event goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newDebugger(t *testing.T) (*Debugger, *enginetest.Engine, *syncBuffer) {
	t.Helper()
	root := t.TempDir()
	file := filepath.Join(root, "pipeline", "main.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(mainJSON), 0o644))

	eng := enginetest.New()
	args := config.LaunchArgs{Resource: root, Agent: "/agent", Task: "t1"}
	d, err := New(args, func(ev session.Events) *session.Controller {
		return session.New(eng, ev, session.WithPollInterval(5*time.Millisecond))
	})
	require.NoError(t, err)
	var buf syncBuffer
	d.setOutput(&buf)
	t.Cleanup(func() { _ = d.Session().Terminate(context.Background()) })
	return d, eng, &buf
}

func waitFor(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return strings.Contains(buf.String(), want) },
		5*time.Second, 5*time.Millisecond, "output never contained %q", want)
}

// TestDebuggerCommandHelp verifies help output lists all commands.
func TestDebuggerCommandHelp(t *testing.T) {
	d, _, buf := newDebugger(t)
	d.exec(context.Background(), "help")
	out := buf.String()
	for _, cmd := range []string{"run", "continue", "next", "break", "clear", "breakpoints", "stack", "threads", "tasks", "help", "quit"} {
		assert.Contains(t, out, cmd)
	}
}

func TestDebuggerTasks(t *testing.T) {
	d, _, buf := newDebugger(t)
	d.exec(context.Background(), "tasks")
	out := buf.String()
	for _, want := range []string{"t1  pipeline/main.json:1", "t2  pipeline/main.json:5", "t3  pipeline/main.json:8"} {
		assert.Contains(t, out, want)
	}

	d.exec(context.Background(), "tasks zz")
	assert.Contains(t, buf.String(), "No tasks found.")
}

func TestDebuggerBreakAndClear(t *testing.T) {
	d, _, buf := newDebugger(t)
	ctx := context.Background()

	d.exec(ctx, "break pipeline/main.json:6")
	assert.Contains(t, buf.String(), "[1] pipeline/main.json:5 t2")
	d.exec(ctx, "break t3 if run_times > 1")
	assert.Contains(t, buf.String(), "[2] pipeline/main.json:8 t3 if run_times > 1")
	d.exec(ctx, "break nowhere")
	assert.Contains(t, buf.String(), `unknown task "nowhere"`)

	require.Len(t, d.Session().Breakpoints().List(), 2)
	d.exec(ctx, "clear 2")
	d.exec(ctx, "clear pipeline/main.json:6")
	assert.Empty(t, d.Session().Breakpoints().List())
	d.exec(ctx, "clear 2")
	assert.Contains(t, buf.String(), "No breakpoint 2.")
	d.exec(ctx, "breakpoints")
	assert.Contains(t, buf.String(), "No breakpoints set.")
}

func TestDebuggerClearIDKeepsOthersOnSameTask(t *testing.T) {
	d, _, buf := newDebugger(t)
	ctx := context.Background()

	d.exec(ctx, "break pipeline/main.json:5")
	d.exec(ctx, "break pipeline/main.json:7")
	d.exec(ctx, "clear 1")
	assert.Contains(t, buf.String(), "Deleted breakpoint 1.")

	list := d.Session().Breakpoints().List()
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ID)
	bound, ok := d.Session().Breakpoints().Bound("t2")
	require.True(t, ok)
	assert.Equal(t, 2, bound.ID)
}

func TestDebuggerNextWhileRunningDoesNotPause(t *testing.T) {
	d, eng, buf := newDebugger(t)
	ctx := context.Background()

	d.exec(ctx, "run")
	waitFor(t, buf, "Running.")
	d.exec(ctx, "next")
	assert.Contains(t, buf.String(), "Not paused.")

	ack := eng.EmitReadyToRun("t2", 0)
	select {
	case <-ack:
	case <-time.After(5 * time.Second):
		t.Fatal("task was held after a next issued while running")
	}
	_, paused := d.Session().Paused()
	assert.False(t, paused)
}

func TestDebuggerRunPauseAndQuit(t *testing.T) {
	d, eng, buf := newDebugger(t)
	ctx := context.Background()

	d.exec(ctx, "continue")
	assert.Contains(t, buf.String(), "Not paused.", "continue before run")

	d.exec(ctx, "break t2")
	d.exec(ctx, "run")
	waitFor(t, buf, "Running.")
	assert.Equal(t, "pipedbg[running]> ", d.buildPrompt())

	ack := eng.EmitReadyToRun("t2", 0)
	waitFor(t, buf, "breakpoint 1 hit before t2 at pipeline/main.json:5")
	assert.Equal(t, "pipedbg[paused | t2]> ", d.buildPrompt())

	d.exec(ctx, "stack")
	waitFor(t, buf, "#0 t2 at pipeline/main.json:5")
	d.exec(ctx, "threads")
	waitFor(t, buf, "* 1 main thread")

	d.exec(ctx, "next")
	select {
	case <-ack:
	case <-time.After(5 * time.Second):
		t.Fatal("next did not release the task")
	}
	eng.EmitReadyToRun("t3", 0)
	waitFor(t, buf, "stepped to t3")

	assert.True(t, d.exec(ctx, "quit"), "quit should end the loop")
	select {
	case <-d.Done():
	default:
		t.Error("session should be terminated after quit")
	}
	assert.Contains(t, buf.String(), "Session terminated.")
}

func TestDebuggerUnknownCommand(t *testing.T) {
	d, _, buf := newDebugger(t)
	d.exec(context.Background(), "frobnicate")
	assert.Contains(t, buf.String(), `Unknown command: "frobnicate"`)
}
