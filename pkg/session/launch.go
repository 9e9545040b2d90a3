package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.trai.ch/zerr"

	"github.com/ormasoftchile/pipedbg/pkg/bridge"
	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/engine"
	"github.com/ormasoftchile/pipedbg/pkg/pipeline"
)

// Launch loads the resource, prepares the engine and posts the entry task.
// Every step is followed by a check for a pending terminate request. On
// failure every acquired handle is released and the session terminates.
func (c *Controller) Launch(ctx context.Context, args config.LaunchArgs) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.state = StateLaunching
	done := make(chan struct{})
	c.launchDone = done
	c.mu.Unlock()
	defer close(done)

	runID := uuid.NewString()
	log := c.logger.With("run", runID)
	log.Info("launch", "resource", args.Resource, "task", args.Task)

	err := c.launch(ctx, args)
	if err == nil {
		c.mu.Lock()
		if !c.expectingStop {
			c.state = StateRunning
			c.mu.Unlock()
			log.Info("task posted", "task", args.Task)
			return nil
		}
		inst := c.instance
		c.mu.Unlock()
		if stopErr := c.eng.PostStop(context.WithoutCancel(ctx), inst); stopErr != nil {
			log.Warn("post stop failed", "error", stopErr)
		}
		err = ErrLaunchAborted
	}

	if errors.Is(err, ErrLaunchAborted) {
		log.Info("launch aborted")
		c.finish(ctx, "launch aborted")
		return err
	}
	log.Error("launch failed", "error", err)
	c.finish(ctx, "launch failed: "+err.Error())
	return err
}

func (c *Controller) launch(ctx context.Context, args config.LaunchArgs) error {
	if err := c.loadResource(args); err != nil {
		return err
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	version, err := c.eng.Version(ctx)
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", ErrRemoteUnavailable, err), "stage", "version")
	}
	c.events.Output("engine version: " + version)
	if err := c.checkpoint(); err != nil {
		return err
	}

	if args.Log != "" {
		if err := c.eng.SetGlobalOptionString(ctx, engine.GlobalLogDir, args.Log); err != nil {
			c.events.Output(fmt.Sprintf("failed to set log directory %s: %v", args.Log, err))
		} else {
			c.events.Output("log directory: " + args.Log)
		}
	}
	if err := c.eng.SetGlobalOptionBool(ctx, engine.GlobalDebugMessage, true); err != nil {
		return zerr.Wrap(err, "enable debug messages")
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	device, err := c.findDevice(ctx, args.Device)
	if err != nil {
		return err
	}
	c.events.Output(fmt.Sprintf("device: %s (%s)", device.Name, device.Address))
	if err := c.checkpoint(); err != nil {
		return err
	}

	channels, err := c.openChannels(ctx)
	if err != nil {
		return err
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	h, err := c.createHandles(ctx, device, args, channels)
	if err != nil {
		return err
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	if err := c.tuneController(ctx, h.ctrl, args.Controller); err != nil {
		return err
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	if err := c.connect(ctx, h, args.Resource); err != nil {
		return err
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	inited, err := c.eng.Initialized(ctx, h.inst)
	if err != nil {
		return zerr.Wrap(err, "query instance state")
	}
	if !inited {
		return ErrInitializationFailed
	}
	if err := c.checkpoint(); err != nil {
		return err
	}

	return c.postTask(ctx, h.inst, args)
}

// loadResource rebuilds the task index for the resource. The previous
// index is dropped before scanning so no breakpoint is verified against
// a stale index.
func (c *Controller) loadResource(args config.LaunchArgs) error {
	name := args.Dialect
	if name == "" {
		name = c.dialect
	}
	dialect, ok := pipeline.DialectByName(name)
	if !ok {
		return zerr.With(zerr.Wrap(config.ErrInvalidLaunchArgs, "unknown dialect"), "dialect", name)
	}

	c.store.Invalidate()
	idx, err := pipeline.Build(args.Resource, dialect, pipeline.WithLogger(c.logger))
	if err != nil {
		return fmt.Errorf("load resource %s: %w", args.Resource, err)
	}
	c.installIndex(idx)
	c.logger.Info("task index built", "root", idx.Root(), "tasks", idx.Len())

	if !c.watch {
		return nil
	}
	w := pipeline.NewWatcher(args.Resource, dialect, func(idx *pipeline.Index) {
		c.store.Invalidate()
		c.installIndex(idx)
		c.events.Output(fmt.Sprintf("pipeline reloaded: %d tasks", idx.Len()))
	}, pipeline.WithWatchLogger(c.logger))
	if err := w.Start(); err != nil {
		c.logger.Warn("pipeline watcher unavailable", "error", err)
		return nil
	}
	c.acquired("watcher", func(context.Context) error { return w.Stop() })
	return nil
}

func (c *Controller) installIndex(idx *pipeline.Index) {
	for _, bp := range c.store.SetIndex(idx) {
		c.events.BreakpointChanged(bp)
	}
}

func (c *Controller) findDevice(ctx context.Context, want string) (engine.DeviceInfo, error) {
	devices, err := c.eng.FindDevices(ctx)
	if err != nil {
		return engine.DeviceInfo{}, fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	}
	if len(devices) == 0 {
		return engine.DeviceInfo{}, ErrDeviceNotFound
	}
	device := devices[0]
	if want != "" {
		found := false
		for _, d := range devices {
			if strings.EqualFold(d.Name, want) || d.Address == want {
				device, found = d, true
				break
			}
		}
		if !found {
			return engine.DeviceInfo{}, zerr.With(zerr.Wrap(ErrDeviceNotFound, "no device matches"), "device", want)
		}
	}
	device.Type = device.Type.WithScreencap(engine.ScreencapEncode)
	return device, nil
}

type channelSet struct {
	api, run, stop engine.ChannelID
}

// openChannels opens the callback queues and starts polling them.
func (c *Controller) openChannels(ctx context.Context) (channelSet, error) {
	var set channelSet
	for _, ch := range []struct {
		kind engine.ChannelKind
		id   *engine.ChannelID
	}{
		{engine.APICallback, &set.api},
		{engine.CustomActionRun, &set.run},
		{engine.CustomActionStop, &set.stop},
	} {
		id, err := c.eng.AddChannel(ctx, ch.kind)
		if err != nil {
			return set, zerr.With(zerr.Wrap(err, "open callback channel"), "kind", string(ch.kind))
		}
		kind := ch.kind
		*ch.id = id
		c.acquired(string(kind), func(ctx context.Context) error {
			return c.eng.DeleteChannel(ctx, kind, id)
		})
	}

	loop := func(kind engine.ChannelKind, id engine.ChannelID, h bridge.Handler) *bridge.Loop {
		return &bridge.Loop{
			Queue:    c.eng,
			Kind:     kind,
			Channel:  id,
			Handler:  h,
			Interval: c.interval,
			Logger:   c.logger,
		}
	}
	b := bridge.New(
		loop(engine.APICallback, set.api, bridge.APIHandler(c.gate, c.events.Output)),
		loop(engine.CustomActionRun, set.run, bridge.CustomActionRunHandler(c.events.Output)),
		loop(engine.CustomActionStop, set.stop, bridge.CustomActionStopHandler(c.events.Output)),
	)
	b.Start(context.WithoutCancel(ctx))
	c.acquired("bridge", func(context.Context) error {
		c.gate.Close()
		return b.Stop()
	})
	return set, nil
}

type handles struct {
	ctrl engine.ControllerID
	res  engine.ResourceID
	inst engine.InstanceID
}

// createHandles creates the controller, resource and instance, binds them
// and registers the custom actions.
func (c *Controller) createHandles(ctx context.Context, device engine.DeviceInfo, args config.LaunchArgs, ch channelSet) (handles, error) {
	var h handles
	var err error
	if h.ctrl, err = c.eng.CreateAdbController(ctx, device, args.Agent, ch.api); err != nil {
		return h, zerr.Wrap(err, "create controller")
	}
	ctrl := h.ctrl
	c.acquired("controller", func(ctx context.Context) error { return c.eng.DestroyController(ctx, ctrl) })

	if h.res, err = c.eng.CreateResource(ctx, ch.api); err != nil {
		return h, zerr.Wrap(err, "create resource")
	}
	res := h.res
	c.acquired("resource", func(ctx context.Context) error { return c.eng.DestroyResource(ctx, res) })

	if h.inst, err = c.eng.CreateInstance(ctx, ch.api); err != nil {
		return h, zerr.Wrap(err, "create instance")
	}
	inst := h.inst
	c.acquired("instance", func(ctx context.Context) error { return c.eng.DestroyInstance(ctx, inst) })
	c.mu.Lock()
	c.instance = inst
	c.mu.Unlock()

	if err := c.eng.BindController(ctx, inst, ctrl); err != nil {
		return h, zerr.Wrap(err, "bind controller")
	}
	if err := c.eng.BindResource(ctx, inst, res); err != nil {
		return h, zerr.Wrap(err, "bind resource")
	}
	for _, name := range args.CustomActions {
		if err := c.eng.RegisterCustomAction(ctx, inst, name, ch.run, ch.stop); err != nil {
			return h, zerr.With(zerr.Wrap(err, "register custom action"), "action", name)
		}
	}
	return h, nil
}

// tuneController applies the optional controller settings. A long side
// takes precedence over a short side.
func (c *Controller) tuneController(ctx context.Context, ctrl engine.ControllerID, t *config.ControllerTuning) error {
	if t == nil {
		return nil
	}
	switch {
	case t.Long > 0:
		if err := c.eng.SetControllerOptionInt(ctx, ctrl, engine.ScreenshotTargetLongSide, t.Long); err != nil {
			return zerr.Wrap(err, "set screenshot long side")
		}
	case t.Short > 0:
		if err := c.eng.SetControllerOptionInt(ctx, ctrl, engine.ScreenshotTargetShortSide, t.Short); err != nil {
			return zerr.Wrap(err, "set screenshot short side")
		}
	}
	if t.PackageEntry != "" {
		if err := c.eng.SetControllerOptionString(ctx, ctrl, engine.DefaultAppPackageEntry, t.PackageEntry); err != nil {
			return zerr.Wrap(err, "set package entry")
		}
	}
	if t.Package != "" {
		if err := c.eng.SetControllerOptionString(ctx, ctrl, engine.DefaultAppPackage, t.Package); err != nil {
			return zerr.Wrap(err, "set package")
		}
	}
	return nil
}

// connect connects the controller and loads the resource, waiting for
// both to finish.
func (c *Controller) connect(ctx context.Context, h handles, resourcePath string) error {
	id, err := c.eng.PostConnect(ctx, h.ctrl)
	if err != nil {
		return zerr.Wrap(err, "connect controller")
	}
	status, err := c.eng.WaitController(ctx, h.ctrl, id)
	if err != nil {
		return zerr.Wrap(err, "wait for connection")
	}
	if status != engine.StatusSuccess {
		return zerr.With(zerr.Wrap(engine.ErrOperationFailed, "connect controller"), "status", status.String())
	}

	id, err = c.eng.PostResourcePath(ctx, h.res, resourcePath)
	if err != nil {
		return zerr.Wrap(err, "load resource path")
	}
	status, err = c.eng.WaitResource(ctx, h.res, id)
	if err != nil {
		return zerr.Wrap(err, "wait for resource")
	}
	if status != engine.StatusSuccess {
		return zerr.With(zerr.Wrap(engine.ErrOperationFailed, "load resource path"), "status", status.String())
	}
	return nil
}

func (c *Controller) postTask(ctx context.Context, inst engine.InstanceID, args config.LaunchArgs) error {
	id, err := c.eng.PostTask(ctx, inst, args.Task, args.ParamJSON())
	if err != nil {
		return zerr.Wrap(err, "post task")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.cancelRun = cancel
	c.mu.Unlock()

	go func() {
		status, err := c.eng.WaitTask(runCtx, inst, id)
		if runCtx.Err() != nil {
			return
		}
		msg := fmt.Sprintf("task %s finished: %s", args.Task, status)
		if err != nil {
			msg = fmt.Sprintf("task %s: %v", args.Task, err)
		}
		c.finish(runCtx, msg)
	}()
	return nil
}
