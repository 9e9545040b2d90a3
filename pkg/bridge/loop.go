// Package bridge turns the engine's polled callback queues into local
// pause and resume semantics.
//
// A Loop drains one queue. Each callback is handed to a Handler and is
// acknowledged only after the handler returns, so a handler that blocks
// holds the engine at that callback.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ormasoftchile/pipedbg/pkg/engine"
)

// DefaultInterval is the pause between two polls of a queue.
const DefaultInterval = 100 * time.Millisecond

// Queue is the part of the engine a Loop polls.
type Queue interface {
	Pull(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID) ([]string, error)
	Request(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID, cid string) (json.RawMessage, error)
	Respond(ctx context.Context, kind engine.ChannelKind, id engine.ChannelID, cid string, reply any) error
}

// Handler processes one callback payload and returns the reply sent with
// its acknowledgement.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Loop polls one callback channel.
type Loop struct {
	Queue    Queue
	Kind     engine.ChannelKind
	Channel  engine.ChannelID
	Handler  Handler
	Interval time.Duration
	Logger   *slog.Logger
}

func (l *Loop) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

// Run polls until ctx ends. Failures are logged and the next poll is
// scheduled as usual.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if err := l.Poll(ctx); err != nil && ctx.Err() == nil {
			l.logger().Debug("callback poll failed", "kind", l.Kind, "error", err)
		}
		timer.Reset(interval)
	}
}

// Poll drains the callbacks pending on the channel once.
func (l *Loop) Poll(ctx context.Context) error {
	ids, err := l.Queue.Pull(ctx, l.Kind, l.Channel)
	if err != nil {
		return err
	}
	for _, cid := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.process(ctx, cid)
	}
	return nil
}

func (l *Loop) process(ctx context.Context, cid string) {
	log := l.logger().With("kind", l.Kind, "cid", cid)
	payload, err := l.Queue.Request(ctx, l.Kind, l.Channel, cid)
	if err != nil {
		log.Debug("callback request failed", "error", err)
		return
	}
	reply, err := l.Handler(ctx, payload)
	if err != nil {
		log.Debug("callback handler failed", "error", err)
	}
	// The engine waits for this acknowledgement, so it is sent even when
	// ctx has ended.
	if err := l.Queue.Respond(context.WithoutCancel(ctx), l.Kind, l.Channel, cid, reply); err != nil {
		log.Debug("callback response failed", "error", err)
	}
}

// Bridge runs a set of loops together.
type Bridge struct {
	loops []*Loop

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a bridge over loops.
func New(loops ...*Loop) *Bridge {
	return &Bridge{loops: loops}
}

// Start runs every loop in its own goroutine until Stop or ctx ends.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.group != nil {
		return
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.group, ctx = errgroup.WithContext(ctx)
	for _, l := range b.loops {
		b.group.Go(func() error { return l.Run(ctx) })
	}
}

// Stop cancels the loops and waits for them to return. A loop blocked in
// a handler returns once its handler does.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	cancel, group := b.cancel, b.group
	b.mu.Unlock()
	if group == nil {
		return nil
	}
	cancel()
	return group.Wait()
}
