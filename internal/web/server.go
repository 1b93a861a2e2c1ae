package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"github.com/feed-farm/engine/internal/engine"
	"github.com/feed-farm/engine/internal/logger"
	"github.com/feed-farm/engine/internal/token"
	"github.com/feed-farm/engine/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// PersistFunc is called after every successful mutating operation to
// write the engine's durable state. A nil PersistFunc disables
// persistence (in-memory deployments and tests).
type PersistFunc func(engine.State) error

// LedgerResolver looks up the deposit ledger for an asset when a new
// pool is registered over HTTP.
type LedgerResolver func(assetID string) (token.Ledger, error)

// WebServer handles HTTP requests against the farm engine
type WebServer struct {
	router  *mux.Router
	port    string
	engine  *engine.Engine
	persist PersistFunc
	ledgers LedgerResolver
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, eng *engine.Engine, persist PersistFunc, ledgers LedgerResolver) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		engine:  eng,
		persist: persist,
		ledgers: ledgers,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleListPools).Methods("GET")
	api.HandleFunc("/pools", ws.handleAddPool).Methods("POST")
	api.HandleFunc("/pools/by-asset/{asset}", ws.handleFindPoolByAsset).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}", ws.handleSetPool).Methods("PATCH")
	api.HandleFunc("/deposit", ws.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/emergency-withdraw", ws.handleEmergencyWithdraw).Methods("POST")
	api.HandleFunc("/pending/{id}/{account}", ws.handlePendingReward).Methods("GET")
	api.HandleFunc("/positions/{id}/{account}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/referrals/{account}", ws.handleGetReferral).Methods("GET")
	api.HandleFunc("/schedule", ws.handleGetSchedule).Methods("GET")
	api.HandleFunc("/admin/emission-rate", ws.handleSetEmissionRate).Methods("POST")
	api.HandleFunc("/admin/referral-bp", ws.handleSetReferralBp).Methods("POST")
	api.HandleFunc("/admin/recipients/{role}", ws.handleRotateRecipient).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Router exposes the configured router (used by tests).
func (ws *WebServer) Router() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	issued, cap := ws.engine.RewardSupply()

	response := map[string]interface{}{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "farm-reward-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"pool_count":    ws.engine.PoolCount(),
			"reward_issued": issued.String(),
			"reward_cap":    cap.String(),
		},
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// writeEngineError maps engine error kinds onto HTTP status codes.
func (ws *WebServer) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, types.ErrPreconditionNotMet):
		status = http.StatusConflict
	case errors.Is(err, types.ErrInvalidConfiguration),
		errors.Is(err, types.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrIntegrationInvariant):
		// Bookkeeping bug; nothing the caller can fix.
		webLogger.Error().Err(err).Msg("Integration invariant violated")
		status = http.StatusInternalServerError
	}
	ws.writeErrorResponse(w, status, err.Error())
}

// persistState writes the engine state after a successful mutation.
func (ws *WebServer) persistState(w http.ResponseWriter) bool {
	if ws.persist == nil {
		return true
	}
	if err := ws.persist(ws.engine.Export()); err != nil {
		webLogger.Error().Err(err).Msg("Failed to persist engine state")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "state persistence failed")
		return false
	}
	return true
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
