// Package dap serves one debug session over the Debug Adapter Protocol.
// Messages are read and written with the go-dap codec over a stream: stdio,
// or an accepted TCP connection.
package dap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/go-dap"

	"github.com/ormasoftchile/pipedbg/pkg/breakpoints"
	"github.com/ormasoftchile/pipedbg/pkg/bridge"
	"github.com/ormasoftchile/pipedbg/pkg/config"
	"github.com/ormasoftchile/pipedbg/pkg/session"
)

// SessionFactory creates the session a server drives. The server itself
// receives the session's events.
type SessionFactory func(events session.Events) *session.Controller

// Scope reference of the paused task's detail.
const taskScopeRef = 1

// Server is a Debug Adapter Protocol server for a single session.
type Server struct {
	reader *bufio.Reader
	writer io.Writer
	logger *slog.Logger

	sendMu sync.Mutex
	seq    int

	session *session.Controller
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server reading requests from r and writing responses
// and events to w.
func NewServer(r io.Reader, w io.Writer, newSession SessionFactory, opts ...Option) *Server {
	s := &Server{
		reader: bufio.NewReader(r),
		writer: w,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session = newSession(s)
	return s
}

// Session returns the session driven by the server.
func (s *Server) Session() *session.Controller { return s.session }

// Run reads and dispatches requests until the stream ends or the client
// disconnects. The session is terminated before Run returns.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if err := s.session.Terminate(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("terminate on exit failed", "error", err)
		}
		s.wg.Wait()
	}()

	for {
		msg, err := dap.ReadProtocolMessage(s.reader)
		if err != nil {
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) {
				s.logger.Warn("unsupported message", "error", err)
				s.sendUnsupported(fieldErr)
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if done := s.dispatch(ctx, msg); done {
			return nil
		}
	}
}

// dispatch handles one request. It reports whether the client asked to
// disconnect.
func (s *Server) dispatch(ctx context.Context, msg dap.Message) bool {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		s.onInitialize(req)
	case *dap.LaunchRequest:
		s.onLaunch(ctx, &req.Request, req.Arguments)
	case *dap.AttachRequest:
		s.onLaunch(ctx, &req.Request, req.Arguments)
	case *dap.SetBreakpointsRequest:
		s.onSetBreakpoints(req)
	case *dap.ConfigurationDoneRequest:
		s.send(&dap.ConfigurationDoneResponse{Response: s.response(&req.Request)})
	case *dap.ContinueRequest:
		s.session.Continue()
		s.send(&dap.ContinueResponse{
			Response: s.response(&req.Request),
			Body:     dap.ContinueResponseBody{AllThreadsContinued: true},
		})
	case *dap.NextRequest:
		s.session.Next()
		s.send(&dap.NextResponse{Response: s.response(&req.Request)})
	case *dap.StepInRequest:
		s.session.Next()
		s.send(&dap.StepInResponse{Response: s.response(&req.Request)})
	case *dap.StepOutRequest:
		s.session.Next()
		s.send(&dap.StepOutResponse{Response: s.response(&req.Request)})
	case *dap.StackTraceRequest:
		s.onStackTrace(req)
	case *dap.ThreadsRequest:
		s.onThreads(req)
	case *dap.ScopesRequest:
		s.onScopes(req)
	case *dap.VariablesRequest:
		s.onVariables(req)
	case *dap.TerminateRequest:
		s.terminate(ctx)
		s.send(&dap.TerminateResponse{Response: s.response(&req.Request)})
	case *dap.DisconnectRequest:
		s.terminate(ctx)
		s.send(&dap.DisconnectResponse{Response: s.response(&req.Request)})
		return true
	case dap.RequestMessage:
		r := req.GetRequest()
		s.sendError(r, fmt.Sprintf("%s is not supported", r.Command))
	default:
		s.logger.Debug("ignoring message", "seq", msg.GetSeq())
	}
	return false
}

// ─── Requests ───────────────────────────────────────────────────────────

func (s *Server) onInitialize(req *dap.InitializeRequest) {
	s.send(&dap.InitializeResponse{
		Response: s.response(&req.Request),
		Body: dap.Capabilities{
			SupportsConfigurationDoneRequest: true,
			SupportsConditionalBreakpoints:   true,
			SupportsTerminateRequest:         true,
			SupportTerminateDebuggee:         true,
		},
	})
	s.send(&dap.InitializedEvent{Event: s.event("initialized")})
}

// onLaunch answers once the entry task is posted. The launch runs in the
// background so a disconnect can abort it.
func (s *Server) onLaunch(ctx context.Context, req *dap.Request, raw []byte) {
	args, err := config.ParseLaunchArgs(raw)
	if err != nil {
		s.sendError(req, err.Error())
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.session.Launch(ctx, args); err != nil {
			s.sendError(req, err.Error())
			return
		}
		resp := s.response(req)
		if req.Command == "attach" {
			s.send(&dap.AttachResponse{Response: resp})
			return
		}
		s.send(&dap.LaunchResponse{Response: resp})
	}()
}

func (s *Server) onSetBreakpoints(req *dap.SetBreakpointsRequest) {
	args := req.Arguments
	specs := make([]breakpoints.Spec, 0, len(args.Breakpoints))
	for _, bp := range args.Breakpoints {
		specs = append(specs, breakpoints.Spec{Line: bp.Line, Condition: bp.Condition})
	}
	if len(args.Breakpoints) == 0 {
		for _, line := range args.Lines {
			specs = append(specs, breakpoints.Spec{Line: line})
		}
	}

	bps := s.session.SetBreakpoints(args.Source.Path, specs)
	out := make([]dap.Breakpoint, len(bps))
	for i, bp := range bps {
		out[i] = toBreakpoint(bp)
	}
	s.send(&dap.SetBreakpointsResponse{
		Response: s.response(&req.Request),
		Body:     dap.SetBreakpointsResponseBody{Breakpoints: out},
	})
}

func (s *Server) onStackTrace(req *dap.StackTraceRequest) {
	frames, total := s.session.StackTrace(req.Arguments.StartFrame, req.Arguments.Levels)
	out := make([]dap.StackFrame, len(frames))
	for i, f := range frames {
		out[i] = dap.StackFrame{
			Id:     f.ID,
			Name:   f.Name,
			Source: source(f.Source),
			Line:   f.Line,
			Column: f.Column,
		}
	}
	s.send(&dap.StackTraceResponse{
		Response: s.response(&req.Request),
		Body:     dap.StackTraceResponseBody{StackFrames: out, TotalFrames: total},
	})
}

func (s *Server) onThreads(req *dap.ThreadsRequest) {
	threads := s.session.Threads()
	out := make([]dap.Thread, len(threads))
	for i, t := range threads {
		out[i] = dap.Thread{Id: t.ID, Name: t.Name}
	}
	s.send(&dap.ThreadsResponse{
		Response: s.response(&req.Request),
		Body:     dap.ThreadsResponseBody{Threads: out},
	})
}

func (s *Server) onScopes(req *dap.ScopesRequest) {
	var scopes []dap.Scope
	if _, paused := s.session.Paused(); paused {
		scopes = append(scopes, dap.Scope{Name: "Task", VariablesReference: taskScopeRef})
	}
	s.send(&dap.ScopesResponse{
		Response: s.response(&req.Request),
		Body:     dap.ScopesResponseBody{Scopes: scopes},
	})
}

// onVariables lists the detail the engine sent for the paused task.
func (s *Server) onVariables(req *dap.VariablesRequest) {
	vars := []dap.Variable{}
	stop, paused := s.session.Paused()
	if paused && req.Arguments.VariablesReference == taskScopeRef {
		env := stop.Detail.Env()
		names := make([]string, 0, len(env))
		for name := range env {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := env[name]
			if v == nil {
				continue
			}
			vars = append(vars, dap.Variable{Name: name, Value: fmt.Sprint(v), Type: fmt.Sprintf("%T", v)})
		}
	}
	s.send(&dap.VariablesResponse{
		Response: s.response(&req.Request),
		Body:     dap.VariablesResponseBody{Variables: vars},
	})
}

func (s *Server) terminate(ctx context.Context) {
	if err := s.session.Terminate(ctx); err != nil {
		s.logger.Warn("terminate failed", "error", err)
	}
}

// ─── Events ─────────────────────────────────────────────────────────────

// Output implements session.Events.
func (s *Server) Output(text string) {
	s.send(&dap.OutputEvent{
		Event: s.event("output"),
		Body:  dap.OutputEventBody{Category: "console", Output: text + "\n"},
	})
}

// Stopped implements session.Events.
func (s *Server) Stopped(stop bridge.Stop) {
	body := dap.StoppedEventBody{
		Reason:            string(stop.Reason),
		Description:       stop.Task,
		ThreadId:          session.ThreadID,
		AllThreadsStopped: true,
	}
	if stop.Reason == bridge.ReasonBreakpoint {
		body.HitBreakpointIds = []int{stop.BreakpointID}
	}
	s.send(&dap.StoppedEvent{Event: s.event("stopped"), Body: body})
}

// BreakpointChanged implements session.Events.
func (s *Server) BreakpointChanged(bp breakpoints.Breakpoint) {
	s.send(&dap.BreakpointEvent{
		Event: s.event("breakpoint"),
		Body:  dap.BreakpointEventBody{Reason: "changed", Breakpoint: toBreakpoint(bp)},
	})
}

// Terminated implements session.Events.
func (s *Server) Terminated() {
	s.send(&dap.TerminatedEvent{Event: s.event("terminated")})
}

// ─── Framing ────────────────────────────────────────────────────────────

func (s *Server) send(msg dap.Message) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.seq++
	switch m := msg.(type) {
	case dap.ResponseMessage:
		m.GetResponse().Seq = s.seq
	case dap.EventMessage:
		m.GetEvent().Seq = s.seq
	}
	if err := dap.WriteProtocolMessage(s.writer, msg); err != nil {
		s.logger.Warn("write message failed", "error", err)
	}
}

func (s *Server) response(req *dap.Request) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Type: "response"},
		RequestSeq:      req.Seq,
		Success:         true,
		Command:         req.Command,
	}
}

func (s *Server) event(name string) dap.Event {
	return dap.Event{ProtocolMessage: dap.ProtocolMessage{Type: "event"}, Event: name}
}

func (s *Server) sendError(req *dap.Request, message string) {
	resp := s.response(req)
	resp.Success = false
	resp.Message = message
	s.send(&dap.ErrorResponse{
		Response: resp,
		Body: dap.ErrorResponseBody{Error: &dap.ErrorMessage{
			Id:       1,
			Format:   message,
			ShowUser: true,
		}},
	})
}

func (s *Server) sendUnsupported(fe *dap.DecodeProtocolMessageFieldError) {
	if fe.SubType == "" || fe.FieldName != "command" {
		return
	}
	s.sendError(&dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: fe.Seq, Type: "request"},
		Command:         fe.FieldValue,
	}, fmt.Sprintf("%s is not supported", fe.FieldValue))
}

func toBreakpoint(bp breakpoints.Breakpoint) dap.Breakpoint {
	return dap.Breakpoint{
		Id:       bp.ID,
		Verified: bp.Verified,
		Message:  bp.Message,
		Source:   source(bp.Source),
		Line:     bp.Line,
	}
}

func source(path string) *dap.Source {
	if path == "" {
		return nil
	}
	return &dap.Source{Name: filepath.Base(path), Path: filepath.FromSlash(path)}
}
