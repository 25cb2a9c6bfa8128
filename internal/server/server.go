// Package server provides the development preview server: it renders
// templates through the runtime, pushes live reloads to connected browsers
// when the store changes, and stands in for the host renderer.
package server

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/scriptlet/internal/logging"
	"github.com/conneroisu/scriptlet/internal/runtime"
	"github.com/conneroisu/scriptlet/internal/store"
	"github.com/conneroisu/scriptlet/internal/watcher"
)

// Server is the preview HTTP server.
type Server struct {
	rt     *runtime.Runtime
	store  *store.DirStore
	logger logging.Logger
	addr   string

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New builds a preview server.
func New(rt *runtime.Runtime, st *store.DirStore, logger logging.Logger, host string, port int) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		rt:      rt,
		store:   st,
		logger:  logger.WithComponent("server"),
		addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /templates/{name}", s.handleTemplate)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Run serves until ctx is done. The watcher feeds cache invalidation and
// client reloads; it may be nil (no live reload).
func (s *Server) Run(ctx context.Context, w *watcher.StoreWatcher) error {
	if w != nil {
		w.OnChange(func(ev watcher.ChangeEvent) {
			removed := s.rt.Invalidate(ev.Template)
			s.logger.Info(ctx, "template changed",
				"template", ev.Template, "invalidated", removed, "removed", ev.Removed)
			s.broadcast(ctx, "reload:"+ev.Template)
		})
		go w.Run(ctx)
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "preview server listening", "addr", s.addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleIndex lists the templates in the store.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List()
	if err != nil {
		http.Error(w, "store not readable", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>scriptlet preview</title></head><body>")
	b.WriteString("<h1>Templates</h1><ul>")
	for _, name := range names {
		escaped := html.EscapeString(name)
		fmt.Fprintf(&b, `<li><a href="/templates/%s">%s</a></li>`, escaped, escaped)
	}
	b.WriteString("</ul></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(injectReloadScript(b.String())))
}

// handleTemplate resolves one template and previews the result.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	resolved, err := s.rt.Resolve(r.Context(), name)
	if err != nil {
		http.Error(w, "template not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(injectReloadScript(resolved)))
}

// handleWebSocket parks a client on the reload channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket accept failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	// Clients only listen; reading drains control frames and detects close.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// broadcast pushes a message to every connected client.
func (s *Server) broadcast(ctx context.Context, message string) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, time.Second)
		if err := conn.Write(writeCtx, websocket.MessageText, []byte(message)); err != nil {
			s.logger.Debug(ctx, "dropping stale client", "error", err.Error())
			conn.Close(websocket.StatusGoingAway, "write failed")
		}
		cancel()
	}
}

// ClientCount reports the number of connected preview clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
