// Package ipc provides the HTTP API over the conversational core: event
// ingestion plus read-only timeline views. Rendering is someone else's job.
package ipc

import (
	"context"
	"net/http"
)

// Server wraps an HTTP server with threadline-specific routing.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	mux := http.NewServeMux()

	// Health endpoint.
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Ingestion endpoints.
	mux.HandleFunc("POST /api/v1/events", h.AppendEvent)
	mux.HandleFunc("POST /api/v1/events/batch", h.AppendBatch)

	// Thread endpoints.
	mux.HandleFunc("GET /api/v1/threads", h.ListThreads)
	mux.HandleFunc("GET /api/v1/threads/{threadID}/events", h.ListEvents)
	mux.HandleFunc("GET /api/v1/threads/{threadID}/timeline", h.GetTimeline)
	mux.HandleFunc("POST /api/v1/threads/{threadID}/compact", h.CompactThread)

	// Snapshot endpoint.
	mux.HandleFunc("GET /api/v1/timelines", h.GetSnapshot)

	srv := &http.Server{
		Addr:    listenAddr,
		Handler: corsMiddleware(mux),
	}

	return &Server{
		httpServer: srv,
	}
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for local dashboard access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
