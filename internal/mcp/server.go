package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/nrlogs/nrlogs/internal/pkg/logger"
)

// Server speaks newline-delimited JSON-RPC on stdio or on a unix/TCP socket.
type Server struct {
	addr     string
	network  string
	handler  *Handler

	// mu guards listener and conns
	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}

	log *logger.Logger
}

type ServerConfig struct {
	SocketPath string
	TCPAddr    string
	Handler    *Handler
	Logger     *logger.Logger
}

func NewServer(cfg ServerConfig) *Server {
	network := "unix"
	addr := cfg.SocketPath
	if cfg.TCPAddr != "" {
		network = "tcp"
		addr = cfg.TCPAddr
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Server{
		addr:    addr,
		network: network,
		handler: cfg.Handler,
		conns:   make(map[net.Conn]struct{}),
		log:     log.WithComponent("mcp"),
	}
}

// Serve reads requests from r and writes responses to w until r is exhausted
// or ctx is cancelled. Each request is handled in its own goroutine; Serve
// waits for in-flight requests before returning.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		writeMu sync.Mutex
	)
	defer wg.Wait()

	send := func(resp *Response) {
		data, err := json.Marshal(resp)
		if err != nil {
			s.log.Error("Failed to marshal response", "error", err)
			data, _ = json.Marshal(errorResponse(resp.ID, ErrInternal, "Internal error"))
		}
		data = append(data, '\n')

		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := w.Write(data); err != nil {
			s.log.Debug("Write failed", "error", err)
		}
	}

	// Reads block, so they run on their own goroutine; cancellation must not
	// wait for the next line.
	lines := make(chan readResult)
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			select {
			case lines <- readResult{line: line, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-lines:
			if len(bytes.TrimSpace(res.line)) > 0 {
				s.dispatch(ctx, &wg, res.line, send)
			}
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return nil
				}
				return res.err
			}
		}
	}
}

type readResult struct {
	line []byte
	err  error
}

func (s *Server) dispatch(ctx context.Context, wg *sync.WaitGroup, line []byte, send func(*Response)) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		send(errorResponse(nil, ErrParse, "Parse error"))
		return
	}
	if req.Method == "" {
		if !req.IsNotification() {
			send(errorResponse(req.ID, ErrInvalidRequest, "Invalid request"))
		}
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if resp := s.handler.Handle(ctx, &req); resp != nil {
			send(resp)
		}
	}()
}

// Start listens on the configured socket and serves connections until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.addr == "" {
		return fmt.Errorf("no socket path or TCP address configured")
	}

	if s.network == "unix" {
		if err := os.MkdirAll(filepath.Dir(s.addr), 0o755); err != nil {
			return fmt.Errorf("failed to create socket dir: %w", err)
		}
		// Remove a stale socket file
		_ = os.Remove(s.addr)
	}

	listener, err := net.Listen(s.network, s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	if s.network == "unix" {
		_ = os.Chmod(s.addr, 0o600)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.log.Info("MCP server listening", "network", s.network, "addr", listener.Addr().String())

	go s.acceptLoop(ctx, listener)

	<-ctx.Done()
	return s.Shutdown()
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("Accept error", "error", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	s.log.Debug("Client connected", "remote", conn.RemoteAddr().String())
	if err := s.Serve(ctx, conn, conn); err != nil && ctx.Err() == nil {
		s.log.Debug("Client disconnected", "error", err)
	}
}

// Shutdown closes the listener and every open connection.
func (s *Server) Shutdown() error {
	s.log.Info("Shutting down MCP server")

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if s.network == "unix" {
		_ = os.Remove(s.addr)
	}
	return nil
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
