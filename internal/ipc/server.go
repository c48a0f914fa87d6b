package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/manager"
)

// Controller is the daemon surface the RPC service drives.
type Controller interface {
	// Submit hands a command to the manager, failing once the daemon is
	// shutting down.
	Submit(cmd manager.Command) error
	// SessionID identifies this daemon run.
	SessionID() string
	// Shutdown asks the daemon to stop. It returns without waiting.
	Shutdown()
}

// replyTimeout bounds how long a synchronous query waits for the manager.
const replyTimeout = 30 * time.Second

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, ctrl Controller, logger *slog.Logger) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("ipc server requires a controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{ctrl: ctrl, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Riffle", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.track(conn)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, disconnects any remaining clients, and removes
// the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path), logging.Error(err))
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

type service struct {
	ctrl   Controller
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.PID = os.Getpid()
	resp.SessionID = s.ctrl.SessionID()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	reply, err := s.await(manager.Command{Kind: manager.ActionStatus}, replyTimeout)
	if err != nil {
		return err
	}
	resp.Env = reply.Env
	return nil
}

func (s *service) Pages(_ PagesRequest, resp *PagesResponse) error {
	reply, err := s.await(manager.Command{Kind: manager.ActionListPages}, replyTimeout)
	if err != nil {
		return err
	}
	resp.Pages = reply.Pages
	return nil
}

func (s *service) Move(req MoveRequest, resp *AckResponse) error {
	direction, err := display.ParseDirection(req.Direction)
	if err != nil {
		return err
	}
	if req.Pages < 0 {
		return fmt.Errorf("page count %d is negative", req.Pages)
	}
	return s.submit(manager.Command{
		Kind:      manager.ActionMovePages,
		Direction: direction,
		Pages:     req.Pages,
	}, resp)
}

func (s *service) NextArchive(_ NextArchiveRequest, resp *AckResponse) error {
	return s.submit(manager.Command{Kind: manager.ActionNextArchive}, resp)
}

func (s *service) PreviousArchive(_ PreviousArchiveRequest, resp *AckResponse) error {
	return s.submit(manager.Command{Kind: manager.ActionPreviousArchive}, resp)
}

func (s *service) Manga(req MangaRequest, resp *AckResponse) error {
	toggle, err := display.ParseToggle(req.State)
	if err != nil {
		return err
	}
	return s.submit(manager.Command{Kind: manager.ActionManga, Toggle: toggle}, resp)
}

func (s *service) Upscaling(req UpscalingRequest, resp *AckResponse) error {
	toggle, err := display.ParseToggle(req.State)
	if err != nil {
		return err
	}
	return s.submit(manager.Command{Kind: manager.ActionUpscaling, Toggle: toggle}, resp)
}

func (s *service) Fit(req FitRequest, resp *AckResponse) error {
	fit, err := display.ParseFit(req.Fit)
	if err != nil {
		return err
	}
	return s.submit(manager.Command{Kind: manager.ActionFit, Fit: fit}, resp)
}

func (s *service) Mode(req ModeRequest, resp *AckResponse) error {
	mode, err := display.ParseDisplayMode(req.Mode)
	if err != nil {
		return err
	}
	return s.submit(manager.Command{Kind: manager.ActionDisplayMode, Mode: mode}, resp)
}

func (s *service) Resolution(req ResolutionRequest, resp *AckResponse) error {
	res, err := display.ParseRes(req.Resolution)
	if err != nil {
		return err
	}
	return s.submit(manager.Command{Kind: manager.ActionResolution, Res: res}, resp)
}

// Execute waits without a deadline: the external command runs as long as it
// runs, and the client decides its own patience.
func (s *service) Execute(req ExecuteRequest, resp *ExecuteResponse) error {
	if len(req.Argv) == 0 {
		return errors.New("execute requires a command")
	}
	s.logger.Debug("execute requested", logging.String("binary", req.Argv[0]))
	reply, err := s.await(manager.Command{Kind: manager.ActionExecute, Exec: req.Argv}, 0)
	if err != nil {
		return err
	}
	if reply.Exec != nil {
		resp.Error = reply.Exec.Error
		resp.Stdout = reply.Exec.Stdout
		resp.Stderr = reply.Exec.Stderr
	}
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("shutdown requested over socket")
	s.ctrl.Shutdown()
	resp.Stopping = true
	return nil
}

func (s *service) submit(cmd manager.Command, resp *AckResponse) error {
	if err := s.ctrl.Submit(cmd); err != nil {
		return err
	}
	resp.Accepted = true
	return nil
}

// await submits a command carrying a reply channel and waits for the
// manager's answer. A timeout of 0 waits until the daemon shuts down.
func (s *service) await(cmd manager.Command, timeout time.Duration) (manager.Reply, error) {
	replies := make(chan manager.Reply, 1)
	cmd.Reply = replies
	if err := s.ctrl.Submit(cmd); err != nil {
		return manager.Reply{}, err
	}

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-s.ctx.Done():
		return manager.Reply{}, errors.New("daemon is shutting down")
	case <-timeoutC:
		return manager.Reply{}, fmt.Errorf("%s timed out waiting for the manager", cmd.Kind)
	}
}
