package session

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/pipedbg/pkg/breakpoints"
	"github.com/ormasoftchile/pipedbg/pkg/bridge"
	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/engine"
	"github.com/ormasoftchile/pipedbg/pkg/engine/enginetest"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

// ─── Helpers ────────────────────────────────────────────────────────────

const mainJSON = `{"t1": {
  "next": ["t2"]
},

"t2": {
  "next": ["t3"]
},
"t3": {}
}
`

type recorder struct {
	mu          sync.Mutex
	output      []string
	stops       []bridge.Stop
	changed     []breakpoints.Breakpoint
	terminated  int
	stopCh      chan bridge.Stop
	terminateCh chan struct{}
}

func newRecorder() *recorder {
	return &recorder{stopCh: make(chan bridge.Stop, 16), terminateCh: make(chan struct{}, 16)}
}

func (r *recorder) Output(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output = append(r.output, text)
}

func (r *recorder) Stopped(stop bridge.Stop) {
	r.mu.Lock()
	r.stops = append(r.stops, stop)
	r.mu.Unlock()
	r.stopCh <- stop
}

func (r *recorder) BreakpointChanged(bp breakpoints.Breakpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, bp)
}

func (r *recorder) Terminated() {
	r.mu.Lock()
	r.terminated++
	r.mu.Unlock()
	r.terminateCh <- struct{}{}
}

func (r *recorder) snapshot() (output []string, stops int, terminated int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.output...), len(r.stops), r.terminated
}

func (r *recorder) waitStop(t *testing.T) bridge.Stop {
	t.Helper()
	select {
	case s := <-r.stopCh:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("no stopped event")
		return bridge.Stop{}
	}
}

func (r *recorder) waitTerminated(t *testing.T) {
	t.Helper()
	select {
	case <-r.terminateCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no terminated event")
	}
}

func resource(t *testing.T) (root, file string) {
	t.Helper()
	root = t.TempDir()
	file = filepath.Join(root, "pipeline", "main.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(mainJSON), 0o644))
	return root, file
}

func launchArgs(root string) config.LaunchArgs {
	return config.LaunchArgs{
		Resource:      root,
		Agent:         "/agent",
		Task:          "t1",
		Param:         map[string]any{"t1": map[string]any{"timeout": 5}},
		Log:           "/tmp/maa-logs",
		Controller:    &config.ControllerTuning{Long: 1280, Short: 720, Package: "com.example"},
		CustomActions: []string{"Tap"},
	}
}

func newSession(t *testing.T, eng engine.Engine) (*Controller, *recorder) {
	t.Helper()
	rec := newRecorder()
	c := New(eng, rec, WithPollInterval(5*time.Millisecond))
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	return c, rec
}

func acked(ack <-chan any) bool {
	select {
	case <-ack:
		return true
	case <-time.After(5 * time.Second):
		return false
	}
}

func notAcked(ack <-chan any) bool {
	select {
	case <-ack:
		return false
	case <-time.After(100 * time.Millisecond):
		return true
	}
}

var releaseOrder = []string{"DestroyInstance", "DestroyResource", "DestroyController", "DeleteChannel", "DeleteChannel", "DeleteChannel"}

func tail(calls []string, n int) []string {
	if len(calls) < n {
		return calls
	}
	return calls[len(calls)-n:]
}

// ─── Launch ─────────────────────────────────────────────────────────────

func TestLaunchSequence(t *testing.T) {
	root, _ := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)

	require.NoError(t, c.Launch(context.Background(), launchArgs(root)))
	assert.Equal(t, StateRunning, c.State())

	assert.Equal(t, []string{
		"Version",
		"SetGlobalOptionString",
		"SetGlobalOptionBool",
		"FindDevices",
		"AddChannel", "AddChannel", "AddChannel",
		"CreateAdbController", "CreateResource", "CreateInstance",
		"BindController", "BindResource",
		"RegisterCustomAction",
		"SetControllerOptionInt", "SetControllerOptionString",
		"PostConnect", "WaitController",
		"PostResourcePath", "WaitResource",
		"Initialized",
		"PostTask",
	}, eng.Calls()[:21])

	v, _ := eng.Option("global/6")
	assert.Equal(t, true, v)
	v, _ = eng.Option("global/1")
	assert.Equal(t, "/tmp/maa-logs", v)
	typ, _ := eng.Option("controller/type")
	assert.Equal(t, engine.ScreencapEncode, typ.(engine.AdbType)&engine.ScreencapMask)
	v, _ = eng.Option("controller/1")
	assert.Equal(t, 1280, v)
	_, short := eng.Option("controller/2")
	assert.False(t, short, "long side takes precedence")
	v, _ = eng.Option("resource/path")
	assert.Equal(t, root, v)
	v, _ = eng.Option("task/param")
	assert.JSONEq(t, `{"t1":{"timeout":5}}`, v.(string))
	assert.Equal(t, []string{"Tap"}, eng.CustomActions())

	output, _, _ := rec.snapshot()
	assert.Contains(t, output, "engine version: v1.0.0-test")
	assert.Contains(t, output, "log directory: /tmp/maa-logs")

	assert.ErrorIs(t, c.Launch(context.Background(), launchArgs(root)), ErrNotIdle)
}

func TestTaskCompletionTerminates(t *testing.T) {
	root, _ := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)
	require.NoError(t, c.Launch(context.Background(), launchArgs(root)))

	eng.FinishTask(engine.StatusSuccess)
	rec.waitTerminated(t)

	assert.Equal(t, StateTerminated, c.State())
	assert.Equal(t, releaseOrder, tail(eng.Calls(), len(releaseOrder)))
	assert.Zero(t, eng.OpenChannels())
	output, _, _ := rec.snapshot()
	assert.Contains(t, output, "task t1 finished: success")
}

func TestLaunchFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(root string, eng *enginetest.Engine) config.LaunchArgs
		wantErr  error
		cause    error
		notCalls []string
		released bool
	}{
		{
			name: "missing pipeline",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				args := launchArgs(root)
				args.Resource = filepath.Join(root, "nowhere")
				return args
			},
			wantErr:  pipeline.ErrResourceNotFound,
			notCalls: []string{"Version"},
		},
		{
			name: "engine unavailable",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				eng.Fail["Version"] = assert.AnError
				return launchArgs(root)
			},
			wantErr:  ErrRemoteUnavailable,
			cause:    assert.AnError,
			notCalls: []string{"SetGlobalOptionBool", "AddChannel", "CreateAdbController"},
		},
		{
			name: "device query failed",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				eng.Fail["FindDevices"] = assert.AnError
				return launchArgs(root)
			},
			wantErr:  ErrDeviceNotFound,
			cause:    assert.AnError,
			notCalls: []string{"AddChannel", "CreateAdbController"},
		},
		{
			name: "no device",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				eng.Devices = nil
				return launchArgs(root)
			},
			wantErr:  ErrDeviceNotFound,
			notCalls: []string{"AddChannel", "CreateAdbController"},
		},
		{
			name: "unknown device",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				args := launchArgs(root)
				args.Device = "pixel"
				return args
			},
			wantErr:  ErrDeviceNotFound,
			notCalls: []string{"CreateAdbController"},
		},
		{
			name: "not initialized",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				eng.NotInitialized = true
				return launchArgs(root)
			},
			wantErr:  ErrInitializationFailed,
			notCalls: []string{"PostTask"},
			released: true,
		},
		{
			name: "bind rejected",
			setup: func(root string, eng *enginetest.Engine) config.LaunchArgs {
				eng.Fail["BindResource"] = engine.ErrOperationFailed
				return launchArgs(root)
			},
			wantErr:  engine.ErrOperationFailed,
			notCalls: []string{"PostConnect", "PostTask"},
			released: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := resource(t)
			eng := enginetest.New()
			c, rec := newSession(t, eng)

			err := c.Launch(context.Background(), tt.setup(root, eng))
			require.ErrorIs(t, err, tt.wantErr)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
			assert.Equal(t, StateTerminated, c.State())

			calls := eng.Calls()
			for _, m := range tt.notCalls {
				assert.NotContains(t, calls, m)
			}
			if tt.released {
				assert.Equal(t, releaseOrder, tail(calls, len(releaseOrder)))
				assert.Zero(t, eng.OpenChannels())
			} else {
				assert.NotContains(t, calls, "DestroyInstance")
			}

			output, _, terminated := rec.snapshot()
			require.NotEmpty(t, output)
			assert.Contains(t, output[len(output)-1], "launch failed")
			assert.Equal(t, 1, terminated)
			assert.NoError(t, c.Terminate(context.Background()), "a failed session still disconnects")
		})
	}
}

func TestTerminateDuringLaunchAborts(t *testing.T) {
	root, _ := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)

	terminated := make(chan error, 1)
	eng.Hooks["BindResource"] = func() {
		go func() { terminated <- c.Terminate(context.Background()) }()
		require.Eventually(t, func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.expectingStop
		}, 5*time.Second, time.Millisecond)
	}

	err := c.Launch(context.Background(), launchArgs(root))
	require.ErrorIs(t, err, ErrLaunchAborted)
	require.NoError(t, <-terminated)

	calls := eng.Calls()
	assert.NotContains(t, calls, "PostConnect")
	assert.NotContains(t, calls, "PostTask")
	assert.Equal(t, releaseOrder, tail(calls, len(releaseOrder)))
	assert.Equal(t, StateTerminated, c.State())
	_, _, n := rec.snapshot()
	assert.Equal(t, 1, n)
}

// ─── Debugging ──────────────────────────────────────────────────────────

func TestBreakpointsVerifiedOnLaunch(t *testing.T) {
	root, file := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)

	bps := c.SetBreakpoints(file, []breakpoints.Spec{{Line: 6}})
	require.Len(t, bps, 1)
	assert.False(t, bps[0].Verified, "no index before launch")

	require.NoError(t, c.Launch(context.Background(), launchArgs(root)))

	rec.mu.Lock()
	changed := append([]breakpoints.Breakpoint(nil), rec.changed...)
	rec.mu.Unlock()
	require.Len(t, changed, 1)
	assert.True(t, changed[0].Verified)
	assert.Equal(t, 5, changed[0].Line)
	assert.Equal(t, "t2", changed[0].Task)
}

func TestPauseContinueAndStep(t *testing.T) {
	root, file := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)
	require.NoError(t, c.Launch(context.Background(), launchArgs(root)))
	c.SetBreakpoints(file, []breakpoints.Spec{{Line: 7}})

	frames, total := c.StackTrace(0, 0)
	assert.Empty(t, frames)
	assert.Zero(t, total)

	require.True(t, acked(eng.EmitReadyToRun("t1", 0)))

	ack := eng.EmitReadyToRun("t2", 0)
	stop := rec.waitStop(t)
	assert.Equal(t, bridge.ReasonBreakpoint, stop.Reason)
	assert.Equal(t, "t2", stop.Task)
	assert.Equal(t, StatePaused, c.State())
	assert.True(t, notAcked(ack))

	frames, total = c.StackTrace(0, 10)
	require.Len(t, frames, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, Frame{ID: 1, Name: "t2", Source: pipeline.NormalizePath(file), Line: 5, Column: 1}, frames[0])
	frames, total = c.StackTrace(1, 10)
	assert.Empty(t, frames)
	assert.Equal(t, 1, total)

	assert.Equal(t, []Thread{{ID: ThreadID, Name: "main thread"}}, c.Threads())

	require.True(t, c.Next())
	require.True(t, acked(ack))

	next := eng.EmitReadyToRun("t3", 0)
	stop = rec.waitStop(t)
	assert.Equal(t, bridge.ReasonStep, stop.Reason)
	assert.Equal(t, "t3", stop.Task)

	require.True(t, c.Continue())
	require.True(t, acked(next))
	assert.Equal(t, StateRunning, c.State())
	assert.False(t, c.Continue(), "nothing to continue")
}

func TestTerminateWhilePaused(t *testing.T) {
	root, file := resource(t)
	eng := enginetest.New()
	c, rec := newSession(t, eng)
	require.NoError(t, c.Launch(context.Background(), launchArgs(root)))
	c.SetBreakpoints(file, []breakpoints.Spec{{Line: 5}})

	ack := eng.EmitReadyToRun("t2", 0)
	rec.waitStop(t)

	require.NoError(t, c.Terminate(context.Background()))
	select {
	case <-ack:
	default:
		t.Fatal("acknowledgement must be released before terminate returns")
	}

	calls := eng.Calls()
	assert.Contains(t, calls, "PostStop")
	assert.Equal(t, releaseOrder, tail(calls, len(releaseOrder)))
	assert.Equal(t, StateTerminated, c.State())

	require.NoError(t, c.Terminate(context.Background()))
	_, stops, terminated := rec.snapshot()
	assert.Equal(t, 1, stops)
	assert.Equal(t, 1, terminated)
	assert.False(t, c.Next())
}

func TestTerminateBeforeLaunch(t *testing.T) {
	c, rec := newSession(t, enginetest.New())
	require.NoError(t, c.Terminate(context.Background()))
	_, _, terminated := rec.snapshot()
	assert.Zero(t, terminated)
}

func TestStateString(t *testing.T) {
	names := []string{}
	for s := StateIdle; s <= StateTerminated; s++ {
		names = append(names, s.String())
	}
	assert.Equal(t, []string{"idle", "launching", "running", "paused", "terminated"}, names)
	assert.True(t, slices.Contains(names, StatePaused.String()))
}
