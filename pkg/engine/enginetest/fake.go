// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ormasoftchile/pipedbg/pkg/engine"
)

// ReadyToRun is the API callback message sent before a task runs.
const ReadyToRun = "Task.Debug.ReadyToRun"

// Engine is an in-memory engine.Engine. Callbacks are queued per channel
// kind with Emit and every acknowledgement is delivered on the channel Emit
// returns. The posted task runs until FinishTask or PostStop.
type Engine struct {
	// Fail makes the named method return the error.
	Fail map[string]error
	// Devices is what FindDevices reports.
	Devices []engine.DeviceInfo
	// NotInitialized makes Initialized report false.
	NotInitialized bool
	// Blocked makes the named method block until its context ends.
	Blocked map[string]bool
	// Hooks run when the named method is called, before it returns.
	Hooks map[string]func()

	mu       sync.Mutex
	seq      int
	calls    []string
	channels map[engine.ChannelID]engine.ChannelKind
	queued   map[engine.ChannelKind][]string
	payloads map[string]json.RawMessage
	acks     map[string]chan any
	options  map[string]any
	actions  []string
	task     chan engine.Status
	taskDone bool
	entered  map[string]chan struct{}
}

// New returns an engine with one device.
func New() *Engine {
	return &Engine{
		Fail:     map[string]error{},
		Blocked:  map[string]bool{},
		Hooks:    map[string]func(){},
		Devices:  []engine.DeviceInfo{{Name: "emulator", AdbPath: "adb", Address: "127.0.0.1:5555", Type: engine.ScreencapFastest | 1}},
		channels: map[engine.ChannelID]engine.ChannelKind{},
		queued:   map[engine.ChannelKind][]string{},
		payloads: map[string]json.RawMessage{},
		acks:     map[string]chan any{},
		options:  map[string]any{},
		task:     make(chan engine.Status, 1),
		entered:  map[string]chan struct{}{},
	}
}

var _ engine.Engine = (*Engine)(nil)

// Emit queues a callback of kind and returns a channel that receives the
// reply once it is acknowledged.
func (e *Engine) Emit(kind engine.ChannelKind, payload any) <-chan any {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	cid := fmt.Sprintf("cb-%d", e.seq)
	e.payloads[cid] = raw
	ack := make(chan any, 1)
	e.acks[cid] = ack
	e.queued[kind] = append(e.queued[kind], cid)
	return ack
}

// EmitReadyToRun queues the notification that task is about to run.
func (e *Engine) EmitReadyToRun(task string, runTimes int) <-chan any {
	details, _ := json.Marshal(map[string]any{
		"id":        runTimes + 1,
		"entry":     task,
		"name":      task,
		"run_times": runTimes,
		"status":    "ready",
	})
	return e.Emit(engine.APICallback, map[string]any{"msg": ReadyToRun, "details_json": string(details)})
}

// FinishTask completes the posted task with status.
func (e *Engine) FinishTask(status engine.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finish(status)
}

func (e *Engine) finish(status engine.Status) {
	if e.taskDone {
		return
	}
	e.taskDone = true
	e.task <- status
}

// Calls returns the names of the methods called so far, in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Called reports whether method was called.
func (e *Engine) Called(method string) bool {
	for _, c := range e.Calls() {
		if c == method {
			return true
		}
	}
	return false
}

// Entered returns a channel closed when method is first called.
func (e *Engine) Entered(method string) <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enteredLocked(method)
}

func (e *Engine) enteredLocked(method string) chan struct{} {
	ch, ok := e.entered[method]
	if !ok {
		ch = make(chan struct{})
		e.entered[method] = ch
	}
	return ch
}

// Option returns the value last set for a global or controller option.
func (e *Engine) Option(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.options[name]
	return v, ok
}

// OpenChannels returns the number of channels not yet deleted.
func (e *Engine) OpenChannels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}

// CustomActions returns the names registered with RegisterCustomAction.
func (e *Engine) CustomActions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.actions...)
}

func (e *Engine) call(ctx context.Context, method string) error {
	e.mu.Lock()
	e.calls = append(e.calls, method)
	ch := e.enteredLocked(method)
	select {
	case <-ch:
	default:
		close(ch)
	}
	err := e.Fail[method]
	blocked := e.Blocked[method]
	hook := e.Hooks[method]
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (e *Engine) nextHandle(prefix string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}

func (e *Engine) Version(ctx context.Context) (string, error) {
	if err := e.call(ctx, "Version"); err != nil {
		return "", err
	}
	return "v1.0.0-test", nil
}

func (e *Engine) SetGlobalOptionString(ctx context.Context, opt engine.GlobalOption, value string) error {
	if err := e.call(ctx, "SetGlobalOptionString"); err != nil {
		return err
	}
	e.setOption(fmt.Sprintf("global/%d", opt), value)
	return nil
}

func (e *Engine) SetGlobalOptionBool(ctx context.Context, opt engine.GlobalOption, value bool) error {
	if err := e.call(ctx, "SetGlobalOptionBool"); err != nil {
		return err
	}
	e.setOption(fmt.Sprintf("global/%d", opt), value)
	return nil
}

func (e *Engine) setOption(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options[key] = value
}

func (e *Engine) FindDevices(ctx context.Context) ([]engine.DeviceInfo, error) {
	if err := e.call(ctx, "FindDevices"); err != nil {
		return nil, err
	}
	return append([]engine.DeviceInfo(nil), e.Devices...), nil
}

func (e *Engine) AddChannel(ctx context.Context, kind engine.ChannelKind) (engine.ChannelID, error) {
	if err := e.call(ctx, "AddChannel"); err != nil {
		return "", err
	}
	id := engine.ChannelID(e.nextHandle(string(kind)))
	e.mu.Lock()
	e.channels[id] = kind
	e.mu.Unlock()
	return id, nil
}

func (e *Engine) DeleteChannel(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID) error {
	if err := e.call(ctx, "DeleteChannel"); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.channels, id)
	e.mu.Unlock()
	return nil
}

// Pull hands out each queued callback once.
func (e *Engine) Pull(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.channels[id]; !ok {
		return nil, engine.ErrOperationFailed
	}
	ids := e.queued[kind]
	e.queued[kind] = nil
	return ids, nil
}

func (e *Engine) Request(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID, cid string) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	raw, ok := e.payloads[cid]
	if !ok {
		return nil, engine.ErrOperationFailed
	}
	return raw, nil
}

func (e *Engine) Respond(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID, cid string, reply any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ack, ok := e.acks[cid]
	if !ok {
		return engine.ErrOperationFailed
	}
	delete(e.acks, cid)
	delete(e.payloads, cid)
	ack <- reply
	return nil
}

func (e *Engine) CreateAdbController(ctx context.Context, dev engine.DeviceInfo, agentPath string, callback engine.ChannelID) (engine.ControllerID, error) {
	if err := e.call(ctx, "CreateAdbController"); err != nil {
		return "", err
	}
	e.setOption("controller/type", dev.Type)
	e.setOption("controller/address", dev.Address)
	return engine.ControllerID(e.nextHandle("ctrl")), nil
}

func (e *Engine) SetControllerOptionInt(ctx context.Context, ctrl engine.ControllerID, opt engine.ControllerOption, value int) error {
	if err := e.call(ctx, "SetControllerOptionInt"); err != nil {
		return err
	}
	e.setOption(fmt.Sprintf("controller/%d", opt), value)
	return nil
}

func (e *Engine) SetControllerOptionString(ctx context.Context, ctrl engine.ControllerID, opt engine.ControllerOption, value string) error {
	if err := e.call(ctx, "SetControllerOptionString"); err != nil {
		return err
	}
	e.setOption(fmt.Sprintf("controller/%d", opt), value)
	return nil
}

func (e *Engine) PostConnect(ctx context.Context, ctrl engine.ControllerID) (engine.ActionID, error) {
	if err := e.call(ctx, "PostConnect"); err != nil {
		return 0, err
	}
	return 1, nil
}

func (e *Engine) WaitController(ctx context.Context, ctrl engine.ControllerID, id engine.ActionID) (engine.Status, error) {
	if err := e.call(ctx, "WaitController"); err != nil {
		return engine.StatusInvalid, err
	}
	return engine.StatusSuccess, nil
}

func (e *Engine) DestroyController(ctx context.Context, ctrl engine.ControllerID) error {
	return e.call(ctx, "DestroyController")
}

func (e *Engine) CreateResource(ctx context.Context, callback engine.ChannelID) (engine.ResourceID, error) {
	if err := e.call(ctx, "CreateResource"); err != nil {
		return "", err
	}
	return engine.ResourceID(e.nextHandle("res")), nil
}

func (e *Engine) PostResourcePath(ctx context.Context, res engine.ResourceID, path string) (engine.ActionID, error) {
	if err := e.call(ctx, "PostResourcePath"); err != nil {
		return 0, err
	}
	e.setOption("resource/path", path)
	return 2, nil
}

func (e *Engine) WaitResource(ctx context.Context, res engine.ResourceID, id engine.ActionID) (engine.Status, error) {
	if err := e.call(ctx, "WaitResource"); err != nil {
		return engine.StatusInvalid, err
	}
	return engine.StatusSuccess, nil
}

func (e *Engine) DestroyResource(ctx context.Context, res engine.ResourceID) error {
	return e.call(ctx, "DestroyResource")
}

func (e *Engine) CreateInstance(ctx context.Context, callback engine.ChannelID) (engine.InstanceID, error) {
	if err := e.call(ctx, "CreateInstance"); err != nil {
		return "", err
	}
	return engine.InstanceID(e.nextHandle("inst")), nil
}

func (e *Engine) BindController(ctx context.Context, inst engine.InstanceID, ctrl engine.ControllerID) error {
	return e.call(ctx, "BindController")
}

func (e *Engine) BindResource(ctx context.Context, inst engine.InstanceID, res engine.ResourceID) error {
	return e.call(ctx, "BindResource")
}

func (e *Engine) RegisterCustomAction(ctx context.Context, inst engine.InstanceID, name string, run, stop engine.ChannelID) error {
	if err := e.call(ctx, "RegisterCustomAction"); err != nil {
		return err
	}
	e.mu.Lock()
	e.actions = append(e.actions, name)
	e.mu.Unlock()
	return nil
}

func (e *Engine) Initialized(ctx context.Context, inst engine.InstanceID) (bool, error) {
	if err := e.call(ctx, "Initialized"); err != nil {
		return false, err
	}
	return !e.NotInitialized, nil
}

func (e *Engine) PostTask(ctx context.Context, inst engine.InstanceID, entry string, param json.RawMessage) (engine.ActionID, error) {
	if err := e.call(ctx, "PostTask"); err != nil {
		return 0, err
	}
	e.setOption("task/entry", entry)
	e.setOption("task/param", string(param))
	return 3, nil
}

// WaitTask blocks until the task is finished or ctx ends.
func (e *Engine) WaitTask(ctx context.Context, inst engine.InstanceID, id engine.ActionID) (engine.Status, error) {
	if err := e.call(ctx, "WaitTask"); err != nil {
		return engine.StatusInvalid, err
	}
	select {
	case status := <-e.task:
		return status, nil
	case <-ctx.Done():
		return engine.StatusInvalid, ctx.Err()
	}
}

func (e *Engine) PostStop(ctx context.Context, inst engine.InstanceID) error {
	if err := e.call(ctx, "PostStop"); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finish(engine.StatusFailed)
	return nil
}

func (e *Engine) DestroyInstance(ctx context.Context, inst engine.InstanceID) error {
	return e.call(ctx, "DestroyInstance")
}
