// Package httpapi publishes the endpoints of a control surface over HTTP.
//
//	GET        /overclock         list of published endpoints
//	GET        /overclock/{name}  query an endpoint
//	PUT, POST  /overclock/{name}  write the request body to an endpoint
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/xid"

	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/surface"
)

const RequestIDHeader = "X-Request-Id"

var ErrDuplicate = errors.New("endpoint already registered")

// Backend answers the requests for published endpoints.
type Backend interface {
	Query(name string) (string, error)
	Command(name string, r io.Reader) error
}

// Server is a surface.Registry: only registered endpoints are reachable.
type Server struct {
	backend Backend
	log     log.Logger
	router  *mux.Router
	srv     *http.Server

	mu        sync.RWMutex
	order     []string
	published map[string]surface.Endpoint
}

var _ surface.Registry = (*Server)(nil)

func New(b Backend, l log.Logger) *Server {
	if l == nil {
		l = log.DefaultLogger
	}
	s := &Server{
		backend:   b,
		log:       l,
		published: make(map[string]surface.Endpoint),
	}
	r := mux.NewRouter()
	r.HandleFunc("/overclock", s.list).Methods(http.MethodGet)
	r.HandleFunc("/overclock/{name}", s.query).Methods(http.MethodGet)
	r.HandleFunc("/overclock/{name}", s.command).Methods(http.MethodPut, http.MethodPost)
	s.router = r
	s.srv = &http.Server{Handler: r}
	return s
}

func (s *Server) Register(ep surface.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.published[ep.Name]; ok {
		return fmt.Errorf("%s: %w", ep.Name, ErrDuplicate)
	}
	s.published[ep.Name] = ep
	s.order = append(s.order, ep.Name)
	return nil
}

func (s *Server) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.published[name]; !ok {
		return
	}
	delete(s.published, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Server) lookup(name string) (surface.Endpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.published[name]
	return ep, ok
}

// Handler returns the router serving the endpoints.
func (s *Server) Handler() http.Handler { return s.router }

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.log.Infof("serving endpoints on http://%s/overclock", l.Addr())
	if err := s.srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests and waits for the ones in flight.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, name := range s.order {
		mode := "r"
		if s.published[name].Writable {
			mode = "rw"
		}
		fmt.Fprintf(w, "%s %s\n", name, mode)
	}
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.lookup(name); !ok {
		http.NotFound(w, r)
		return
	}
	v, err := s.backend.Query(name)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, v)
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	id := xid.New().String()
	w.Header().Set(RequestIDHeader, id)

	name := mux.Vars(r)["name"]
	if _, ok := s.lookup(name); !ok {
		s.log.Warnf("request %s: %s %s: not published", id, r.Method, name)
		http.NotFound(w, r)
		return
	}
	if err := s.backend.Command(name, r.Body); err != nil {
		s.log.Warnf("request %s: %s %s from %s: %v", id, r.Method, name, r.RemoteAddr, err)
		s.fail(w, err)
		return
	}
	s.log.Infof("request %s: %s %s from %s", id, r.Method, name, r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), Status(err))
}

// Status maps a surface error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, surface.ErrUnknownEndpoint):
		return http.StatusNotFound
	case errors.Is(err, surface.ErrReadOnly):
		return http.StatusMethodNotAllowed
	case errors.Is(err, surface.ErrEmptyPayload), errors.Is(err, surface.ErrTransferFailed):
		return http.StatusBadRequest
	case errors.Is(err, surface.ErrCapacityExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, surface.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
