package format

// goRuntime is the fixed support code every Go program starts with.
// Generated declarations refer to it by name: object, routeTable, listenerSet,
// requestPath, respond, respondText, logValue, logError and asError.
//
// Listeners are bound by start but only begin serving in serveAll, which the
// program calls after every route has been registered.
const goRuntime = `// Code generated by flowgen. DO NOT EDIT.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

type field struct {
	key   string
	value any
}

// object is a JSON object that keeps its key order.
type object []field

func (o object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// routeTable maps exact request paths to values. It is written during
// startup only and read concurrently afterwards.
type routeTable struct {
	handlers map[string]any
}

func newRouteTable() *routeTable {
	return &routeTable{handlers: make(map[string]any)}
}

// register stores value under path. A path without a leading slash is
// registered as if it had one; matching is exact after that.
func (t *routeTable) register(path string, value any) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	t.handlers[path] = value
}

func (t *routeTable) has(path string) bool {
	_, ok := t.handlers[path]
	return ok
}

func (t *routeTable) serve(path string, res http.ResponseWriter) {
	respond(res, t.handlers[path])
}

type listenerSet struct {
	servers []*http.Server
	bound   map[*http.Server]net.Listener
}

func newListenerSet() *listenerSet {
	return &listenerSet{bound: make(map[*http.Server]net.Listener)}
}

// start binds the port and prepares a server for it. Requests are accepted
// only once serveAll runs.
func (s *listenerSet) start(port float64, handler func(*http.Request, http.ResponseWriter)) *http.Server {
	addr := fmt.Sprintf(":%d", int(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen %s: %v", addr, err)
	}
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(r, w)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.bound[srv] = ln
	return srv
}

func (s *listenerSet) track(srv *http.Server) *http.Server {
	s.servers = append(s.servers, srv)
	return srv
}

// serveAll starts serving every tracked listener.
func (s *listenerSet) serveAll() {
	for _, srv := range s.servers {
		ln := s.bound[srv]
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("server %s: %v", srv.Addr, err)
			}
		}(srv, ln)
		log.Printf("listening on %s", ln.Addr())
	}
}

// closeOnSignal blocks until SIGINT or SIGTERM, closes every listener and
// exits once the closed count reaches the listener total.
func (s *listenerSet) closeOnSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("closing all listeners")

	total := int64(len(s.servers))
	if total == 0 {
		os.Exit(0)
	}

	var closed atomic.Int64
	done := make(chan struct{})
	for _, srv := range s.servers {
		go func(srv *http.Server) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("shutdown: %v", err)
			}
			if closed.Add(1) == total {
				close(done)
			}
		}(srv)
	}
	<-done
	log.Println("all listeners closed")
	os.Exit(0)
}

func requestPath(req *http.Request) string {
	return req.URL.Path
}

func respond(res http.ResponseWriter, value any) {
	if s, ok := value.(string); ok {
		respondText(res, http.StatusOK, s)
		return
	}
	body, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write(body)
}

func respondText(res http.ResponseWriter, status int, body string) {
	res.Header().Set("Content-Type", "text/plain")
	res.WriteHeader(status)
	_, _ = res.Write([]byte(body))
}

func logValue(value any) {
	if s, ok := value.(string); ok {
		fmt.Println(s)
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		fmt.Println(value)
		return
	}
	fmt.Println(string(b))
}

func logError(err error) {
	log.Printf("server error: %v", err)
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
`
