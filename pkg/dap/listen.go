package dap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Serve accepts connections on l and runs one server, with its own session,
// per connection. It returns when ctx ends or l fails.
func Serve(ctx context.Context, l net.Listener, newSession SessionFactory, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		log := logger.With("remote", conn.RemoteAddr().String())
		log.Info("client connected")

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			// Closing the connection unblocks the reader on shutdown.
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			defer stop()
			if err := NewServer(conn, conn, newSession, WithLogger(log)).Run(ctx); err != nil {
				log.Warn("session ended with error", "error", err)
			}
			log.Info("client disconnected")
		}()
	}
}

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string, newSession SessionFactory, logger *slog.Logger) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if logger != nil {
		logger.Info("debug adapter listening", "addr", l.Addr().String())
	}
	return Serve(ctx, l, newSession, logger)
}
