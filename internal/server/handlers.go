package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/web3gaoyutang/snapback/internal/pyramid"
	"github.com/web3gaoyutang/snapback/internal/retrace"
	"github.com/web3gaoyutang/snapback/internal/scanner"
	"github.com/web3gaoyutang/snapback/internal/service"
	"github.com/web3gaoyutang/snapback/internal/storage"
	"github.com/web3gaoyutang/snapback/internal/symbol"
)

type analyzeRequest struct {
	StockCode   string  `json:"stock_code"`
	TotalAmount float64 `json:"total_amount"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{
		"status": "ok",
		"trader": s.Trader.Name(),
		"source": s.Analyzer.Fetcher.Name(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mtxAnalyses.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	analysis, err := s.Analyzer.Analyze(req.StockCode, req.TotalAmount)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}

	recordAnalysisMetrics(analysis)
	writeSuccess(w, analysis)
}

// recordAnalysisMetrics counts one successful run of the analysis pipeline,
// whichever endpoint triggered it.
func recordAnalysisMetrics(analysis *service.Analysis) {
	mtxAnalyses.WithLabelValues("ok").Inc()
	mtxOrdersPlanned.Add(float64(analysis.Result.Summary.TotalOrders))
	mtxUnderLot.Add(float64(len(analysis.Report.UnderLotOrders())))
}

// handleExecute analyzes and then submits the plan to the trader in one
// request. Orders that fail validation hard enough to be unplaceable are
// still reported per-order by the trader.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	analysis, err := s.Analyzer.Analyze(req.StockCode, req.TotalAmount)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}
	recordAnalysisMetrics(analysis)

	if err := s.Trader.Connect(); err != nil {
		writeError(w, http.StatusBadGateway, "trader connect: "+err.Error())
		return
	}
	results := s.Trader.BatchPlace(analysis.Symbol, analysis.Result.Orders)

	placed := 0
	for _, res := range results {
		outcome := "rejected"
		if res.Success {
			outcome = "ok"
			placed++
		}
		mtxOrdersSubmitted.WithLabelValues(s.Cfg.Trade.Mode, outcome).Inc()
	}
	log.Printf("[INFO] executed plan for %s: %d/%d orders placed via %s",
		analysis.Symbol, placed, len(results), s.Trader.Name())

	writeSuccess(w, map[string]interface{}{
		"analysis": analysis,
		"results":  results,
		"placed":   placed,
		"total":    len(results),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("stock_code"); code != "" {
		normalized, err := symbol.Normalize(code)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		plans, err := s.Store.PlansBySymbol(normalized)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load history: "+err.Error())
			return
		}
		writeSuccess(w, plans)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	plans, err := s.Store.RecentPlans(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history: "+err.Error())
		return
	}
	writeSuccess(w, plans)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.Store.Statistics()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load statistics: "+err.Error())
		return
	}
	writeSuccess(w, stats)
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Store.PlanByID(r.PathValue("id"))
	if errors.Is(err, storage.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load plan: "+err.Error())
		return
	}
	writeSuccess(w, rec)
}

func (s *Server) handleOrderDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.Store.DeletePlan(id)
	if errors.Is(err, storage.ErrPlanNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete plan: "+err.Error())
		return
	}
	writeSuccess(w, map[string]string{"deleted": id})
}

// writeAnalyzeError maps pipeline errors to HTTP statuses. A window without a
// limit-up day is an expected outcome, not a server fault.
func (s *Server) writeAnalyzeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scanner.ErrNoLimitUp):
		mtxAnalyses.WithLabelValues("no_limit_up").Inc()
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, symbol.ErrInvalidCode),
		errors.Is(err, pyramid.ErrInvalidInput),
		errors.Is(err, pyramid.ErrInvalidConfiguration),
		errors.Is(err, retrace.ErrInvalidRange),
		errors.Is(err, scanner.ErrNoBars):
		mtxAnalyses.WithLabelValues("bad_request").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		mtxAnalyses.WithLabelValues("error").Inc()
		log.Printf("[ERROR] analyze: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
