// Package server exposes the analysis engine over a small JSON API.
//
// Responses share one envelope: {"success": bool, "data": ..., "message": ...}.
// Input errors map to 400, a window with no limit-up day to 404, internal
// faults to 500.
package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/web3gaoyutang/snapback/internal/config"
	"github.com/web3gaoyutang/snapback/internal/service"
	"github.com/web3gaoyutang/snapback/internal/storage"
	"github.com/web3gaoyutang/snapback/internal/trader"
)

// Server routes API requests to the analyzer, plan store, and trader.
type Server struct {
	Analyzer *service.Analyzer
	Store    storage.Store
	Trader   trader.Client
	Cfg      *config.Config

	mux *http.ServeMux
}

// New creates a Server with all routes registered.
func New(an *service.Analyzer, store storage.Store, tr trader.Client, cfg *config.Config) *Server {
	s := &Server{Analyzer: an, Store: store, Trader: tr, Cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/execute", s.handleExecute)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/order/{id}", s.handleOrderDetail)
	mux.HandleFunc("DELETE /api/order/{id}", s.handleOrderDelete)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.mux = mux
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// envelope is the shared response shape.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}
