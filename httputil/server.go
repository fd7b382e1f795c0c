// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/bvk/steambot/ctxutil"
	"github.com/google/uuid"
)

// Server is a http server whose handlers can be added and removed at
// runtime. Same handlers are served on all listeners.
type Server struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	mutex sync.Mutex

	nextServerID int64
	serverMap    map[int64]*http.Server

	handlerMap map[string]http.Handler
	mux        *http.ServeMux
}

// New creates a http server.
func New(opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer func() {
		if status != nil {
			cancel(status)
		}
	}()

	s := &Server{
		ctx:        ctx,
		cancel:     cancel,
		opts:       *opts,
		serverMap:  make(map[int64]*http.Server),
		handlerMap: make(map[string]http.Handler),
		mux:        http.NewServeMux(),
	}
	return s, nil
}

func (s *Server) Close() error {
	s.cancel(os.ErrClosed)

	s.mutex.Lock()
	servers := s.serverMap
	s.serverMap = make(map[int64]*http.Server)
	s.mutex.Unlock()

	for _, svr := range servers {
		svr.Close()
	}
	s.wg.Wait()
	return nil
}

// StartUnix starts serving on a unix domain socket.
func (s *Server) StartUnix(ctx context.Context, addr *net.UnixAddr) (int64, error) {
	l, err := net.ListenUnix("unix", addr)
	if err != nil {
		return -1, err
	}
	client := &http.Client{
		Timeout: s.opts.ServerCheckTimeout,
		Transport: &http.Transport{
			DialContext: func(_ context.Context, network, address string) (net.Conn, error) {
				return net.DialUnix("unix", nil, addr)
			},
		},
	}
	return s.start(ctx, l, client, "localhost")
}

// StartTCP starts serving on a tcp address. When the port is zero, it is
// updated with the allocated port number.
func (s *Server) StartTCP(ctx context.Context, addr *net.TCPAddr) (int64, error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return -1, err
	}
	if addr.Port == 0 {
		laddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			l.Close()
			return -1, fmt.Errorf("created listener addr is not *net.TCPAddr type")
		}
		addr.Port = laddr.Port
	}
	client := &http.Client{
		Timeout: s.opts.ServerCheckTimeout,
	}
	return s.start(ctx, l, client, l.Addr().String())
}

// start serves the listener and waits till a request on a temporary test
// handler succeeds.
func (s *Server) start(ctx context.Context, l net.Listener, client *http.Client, host string) (id int64, status error) {
	defer func() {
		if status != nil {
			l.Close()
		}
	}()

	testPath := "/" + uuid.New().String()
	testHandler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		log.Printf("%s: received test request from %q", l.Addr(), r.RemoteAddr)
	})
	s.AddHandler(testPath, testHandler)
	defer s.RemoveHandler(testPath)

	server := &http.Server{
		Handler: s,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}
	defer func() {
		if status != nil {
			server.Close()
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				slog.Error("CAUGHT PANIC", "panic", r)
				slog.Error(string(debug.Stack()))
				panic(r)
			}
		}()

		if err := server.Serve(l); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "http server failed", "addr", l.Addr(), "err", err)
			}
		}
	}()

	u := url.URL{
		Scheme: "http",
		Host:   host,
		Path:   testPath,
	}
	check := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(r)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("test handler returned status %d", resp.StatusCode)
		}
		return nil
	}
	if err := ctxutil.RetryTimeout(ctx, s.opts.ServerCheckRetryInterval, s.opts.ServerCheckTimeout, check); err != nil {
		return -1, fmt.Errorf("could not invoke test handler: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id = s.nextServerID
	s.nextServerID++
	s.serverMap[id] = server
	return id, nil
}

// Stop closes the server with the given id.
func (s *Server) Stop(id int64) error {
	s.mutex.Lock()
	svr, ok := s.serverMap[id]
	delete(s.serverMap, id)
	s.mutex.Unlock()

	if !ok {
		return fmt.Errorf("http server %d not found: %w", id, os.ErrNotExist)
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.ShutdownTimeout)
	defer cancel()
	if err := svr.Shutdown(ctx); err != nil {
		_ = svr.Close()
	}
	return nil
}

func (s *Server) AddHandler(pattern string, handler http.Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.handlerMap[pattern] = handler
	s.updateHandlerMuxLocked()
}

// RemoveHandler returns false if the pattern has no handler.
func (s *Server) RemoveHandler(pattern string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.handlerMap[pattern]; !ok {
		return false
	}
	delete(s.handlerMap, pattern)
	s.updateHandlerMuxLocked()
	return true
}

// Patterns returns the sorted list of registered patterns.
func (s *Server) Patterns() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var patterns []string
	for k := range s.handlerMap {
		patterns = append(patterns, k)
	}
	slices.Sort(patterns)
	return patterns
}

func (s *Server) updateHandlerMuxLocked() {
	m := http.NewServeMux()
	for k, v := range s.handlerMap {
		m.Handle(k, v)
	}
	s.mux = m
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	mux := s.mux
	s.mutex.Unlock()

	mux.ServeHTTP(w, r)
}

