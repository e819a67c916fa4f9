// Package httpapi exposes the external wire interface (spec.md §6) over
// gorilla/mux, grounded on the teacher's server.go route table and
// handlers/*.go request shapes, generalized from the teacher's
// global-variable config package onto a Server value holding its
// dependencies explicitly.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/transparent-search/crawlcore/internal/events"
	"github.com/transparent-search/crawlcore/internal/indexer"
	"github.com/transparent-search/crawlcore/internal/scheduler"
	"github.com/transparent-search/crawlcore/internal/store"
)

// Server owns the dependencies every handler needs.
type Server struct {
	store      store.Store
	indexer    *indexer.Indexer
	flags      *scheduler.Flags
	bus        *events.Bus
	adminToken string
	upgrader   websocket.Upgrader
}

// New builds a Server. bus may be nil to disable the websocket bridge.
func New(st store.Store, ix *indexer.Indexer, flags *scheduler.Flags, bus *events.Bus, adminToken string) *Server {
	return &Server{
		store:      st,
		indexer:    ix,
		flags:      flags,
		bus:        bus,
		adminToken: adminToken,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// @title crawlcore API
// @version 1.0
// @description Web crawler and search-indexing control API
// @BasePath /

// @securityDefinitions.apikey AdminToken
// @in query
// @name admin_token

// Router builds the full mux.Router for the daemon's HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogging, cors, adminAuth(s.adminToken))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/sessions", s.handleStartSession).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/sessions/{id}/reindex", s.handleReindexSession).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/jobs", s.handleCreateJob).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/import", s.handleBulkImport).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/admin/status", s.handleAdminStatus).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/admin/force-stop", s.handleForceStop).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/admin/force-pause-index", s.handleForcePauseIndex).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/admin/resume", s.handleResume).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/ws/{id}", s.handleWebSocket).Methods(http.MethodGet, http.MethodOptions)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// Serve starts the HTTP server on addr and blocks until it returns (always
// a non-nil error, per net/http.ListenAndServe convention).
func (s *Server) Serve(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
