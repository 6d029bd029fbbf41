package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pinggolf/cancercenter-offices/internal/config"
	"github.com/pinggolf/cancercenter-offices/internal/db"
	"github.com/pinggolf/cancercenter-offices/internal/refresh"
	"github.com/pinggolf/cancercenter-offices/internal/services"
	"github.com/rs/cors"
)

// Server represents the API server.
type Server struct {
	config       *config.Config
	db           *db.Queries
	router       *mux.Router
	refreshEngine *refresh.Engine
	auditService *services.AuditService
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, queries *db.Queries, refreshEngine *refresh.Engine) *Server {
	s := &Server{
		config:        cfg,
		db:            queries,
		router:        mux.NewRouter(),
		refreshEngine: refreshEngine,
		auditService:  services.NewAuditService(queries),
	}

	s.setupRoutes()
	return s
}

// Router returns the configured HTTP router wrapped with CORS.
func (s *Server) Router() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{s.config.CORSAllowedOrigins},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})

	return c.Handler(s.router)
}

// setupRoutes configures all API routes per §4.I.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/centers", s.handleListCenters).Methods("GET")
	api.HandleFunc("/centers/{id}/offices", s.handleListOfficesForCenter).Methods("GET")
	api.HandleFunc("/offices/flag-deletion", s.handleFlagDeletion).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminMiddleware)
	admin.HandleFunc("/centers/upload-csv", s.handleUploadCentersCSV).Methods("POST")
	admin.HandleFunc("/companies/upload-csv", s.handleUploadCompaniesCSV).Methods("POST")
	admin.HandleFunc("/refresh-center/{id}", s.handleRefreshCenter).Methods("POST")
	admin.HandleFunc("/refresh-batch", s.handleRefreshBatch).Methods("POST")
	admin.HandleFunc("/refresh-all", s.handleRefreshAll).Methods("POST")
	admin.HandleFunc("/offices/deletion-flags", s.handleListDeletionFlags).Methods("GET")
	admin.HandleFunc("/offices/deletion-flags/{flagId}/decision", s.handleDecideDeletionFlag).Methods("POST")
	admin.HandleFunc("/status", s.handleAdminStatus).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
