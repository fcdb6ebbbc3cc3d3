// Package api exposes the governance dashboard and protocol-adapter HTTP
// surface.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cordonhq/cordon/internal/audit"
	"github.com/cordonhq/cordon/internal/engine"
	"github.com/cordonhq/cordon/internal/websocket"
)

// Deps are the collaborators the router hands requests to. Engine is a
// getter because the server rebuilds the engine when reference datasets
// change on disk.
type Deps struct {
	Engine   func() *engine.Engine
	Recorder audit.Recorder
	Hub      *websocket.Hub
	Version  string
}

// Router handles HTTP routing.
type Router struct {
	mux  *http.ServeMux
	deps Deps
}

// NewRouter creates the API router.
func NewRouter(deps Deps) http.Handler {
	r := &Router{
		mux:  http.NewServeMux(),
		deps: deps,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("/api/evaluate", r.handleEvaluate)
	r.mux.HandleFunc("/api/verdicts", r.handleVerdicts)
	r.mux.HandleFunc("/api/verdicts/", r.handleVerdict)
	r.mux.HandleFunc("/api/reports/verdicts.pdf", r.handleVerdictReport)
	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/version", r.handleVersion)
	if r.deps.Hub != nil {
		r.mux.HandleFunc("/ws", r.deps.Hub.HandleWebSocket)
	}
	r.mux.Handle("/metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
