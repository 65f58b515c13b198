// Package api exposes the editor session over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/config"
	"github.com/probelab/flowboard/pkg/editor"
	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/registry"
)

// Server represents the HTTP API server
type Server struct {
	config     *config.Config
	router     *mux.Router
	server     *http.Server
	controller *editor.Controller
	flows      *flows.Manager
	registry   *registry.CustomNodeRegistry
	wsManager  *WebSocketManager
	logger     hclog.Logger
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, controller *editor.Controller, flowMgr *flows.Manager, reg *registry.CustomNodeRegistry, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	s := &Server{
		config:     cfg,
		router:     mux.NewRouter(),
		controller: controller,
		flows:      flowMgr,
		registry:   reg,
		wsManager:  NewWebSocketManager(controller, logger),
		logger:     logger.Named("api"),
	}

	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", addr)

	err := s.server.ListenAndServe()

	// If the server was shut down gracefully, this error is expected
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.wsManager.CloseAll()
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// API router with version prefix
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	// Flow routes
	flowRoutes := api.PathPrefix("/flows").Subrouter()
	flowRoutes.HandleFunc("", s.handleListFlows).Methods(http.MethodGet, http.MethodOptions)
	flowRoutes.HandleFunc("", s.handleCreateFlow).Methods(http.MethodPost, http.MethodOptions)
	flowRoutes.HandleFunc("/{id}", s.handleGetFlow).Methods(http.MethodGet, http.MethodOptions)
	flowRoutes.HandleFunc("/{id}", s.handleRenameFlow).Methods(http.MethodPatch, http.MethodOptions)
	flowRoutes.HandleFunc("/{id}", s.handleDeleteFlow).Methods(http.MethodDelete, http.MethodOptions)
	flowRoutes.HandleFunc("/{id}/select", s.handleSelectFlow).Methods(http.MethodPost, http.MethodOptions)

	// Graph routes operate on the active flow's session
	graph := api.PathPrefix("/graph").Subrouter()
	graph.HandleFunc("", s.handleGetGraph).Methods(http.MethodGet, http.MethodOptions)
	graph.HandleFunc("/nodes", s.handleAddNode).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/edges", s.handleConnect).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/node-changes", s.handleNodeChanges).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/edge-changes", s.handleEdgeChanges).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/selection", s.handleDeleteSelection).Methods(http.MethodDelete, http.MethodOptions)
	graph.HandleFunc("/clear", s.handleClearCanvas).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/undo", s.handleUndo).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/redo", s.handleRedo).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/keys", s.handleKey).Methods(http.MethodPost, http.MethodOptions)
	graph.HandleFunc("/export", s.handleExport).Methods(http.MethodGet, http.MethodOptions)
	graph.HandleFunc("/import", s.handleImport).Methods(http.MethodPost, http.MethodOptions)

	// Node type routes
	api.HandleFunc("/node-types", s.handleListNodeTypes).Methods(http.MethodGet, http.MethodOptions)

	customNodes := api.PathPrefix("/custom-nodes").Subrouter()
	customNodes.HandleFunc("", s.handleListCustomNodes).Methods(http.MethodGet, http.MethodOptions)
	customNodes.HandleFunc("", s.handleCreateCustomNode).Methods(http.MethodPost, http.MethodOptions)
	customNodes.HandleFunc("/{id}", s.handleGetCustomNode).Methods(http.MethodGet, http.MethodOptions)
	customNodes.HandleFunc("/{id}", s.handleUpdateCustomNode).Methods(http.MethodPut, http.MethodOptions)
	customNodes.HandleFunc("/{id}", s.handleDeleteCustomNode).Methods(http.MethodDelete, http.MethodOptions)

	// WebSocket endpoint for live graph updates
	api.HandleFunc("/ws", s.wsManager.HandleWebSocket).Methods(http.MethodGet)

	// Request logging middleware
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	})

	// CORS middleware for all routes
	s.router.Use(corsMiddleware)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// corsMiddleware allows the canvas frontend to call the API from another
// origin during development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
