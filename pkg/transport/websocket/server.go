// Package websocket serves a console over a websocket session. Only the
// latest session is attached; an older one is closed when a new client
// connects.
package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/dualcore/pkg/framework"
	"github.com/robotalks/dualcore/pkg/transport"
)

// DefaultPath is the HTTP path when none is given.
const DefaultPath = "/console"

// Server is a console transport accepting websocket sessions.
type Server struct {
	*transport.Memory

	path     string
	listener net.Listener

	lock    sync.Mutex
	session *websocket.Conn
}

// Listen binds addr and serves sessions on path once Run is called.
func Listen(addr, path string) (*Server, error) {
	if path == "" {
		path = DefaultPath
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{Memory: transport.NewMemory(), path: path, listener: ln}
	s.Memory.Sink = s.send
	glog.Infof("console websocket at ws://%s%s", ln.Addr(), path)
	return s, nil
}

// Dial listens on the host and path of u, e.g. ws://:8080/console.
func Dial(u *url.URL) (transport.Conn, error) {
	return Listen(u.Host, u.Path)
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.path, websocket.Handler(s.serve))
	srv := &http.Server{Handler: mux}
	err := framework.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(s.listener)
	})
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) serve(ws *websocket.Conn) {
	s.lock.Lock()
	if s.session != nil {
		glog.Infof("console session %s replaced", ws.Request().RemoteAddr)
		s.session.Close()
	}
	s.session = ws
	s.lock.Unlock()
	glog.V(2).Infof("console session %s attached", ws.Request().RemoteAddr)

	defer func() {
		s.lock.Lock()
		if s.session == ws {
			s.session = nil
		}
		s.lock.Unlock()
		ws.Close()
	}()
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			glog.V(2).Infof("console session closed: %v", err)
			return
		}
		s.Memory.Feed(data)
	}
}

func (s *Server) send(p []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.session == nil {
		return nil
	}
	return websocket.Message.Send(s.session, p)
}

// Attached tells if a session is attached.
func (s *Server) Attached() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.session != nil
}

// Close implements transport.Conn.
func (s *Server) Close() error {
	s.Memory.Close()
	s.lock.Lock()
	if s.session != nil {
		s.session.Close()
	}
	s.lock.Unlock()
	return s.listener.Close()
}

func init() {
	transport.Register("ws", Dial)
}
