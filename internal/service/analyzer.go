// Package service wires the analysis pipeline: fetch bars, locate the
// limit-up event, derive retracement levels, allocate orders, validate the
// plan, and persist the record.
package service

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/web3gaoyutang/snapback/internal/config"
	"github.com/web3gaoyutang/snapback/internal/fetcher"
	"github.com/web3gaoyutang/snapback/internal/model"
	"github.com/web3gaoyutang/snapback/internal/pyramid"
	"github.com/web3gaoyutang/snapback/internal/retrace"
	"github.com/web3gaoyutang/snapback/internal/scanner"
	"github.com/web3gaoyutang/snapback/internal/storage"
	"github.com/web3gaoyutang/snapback/internal/symbol"
)

// Analysis is the full outcome of one analyze request.
type Analysis struct {
	PlanID      string                   `json:"plan_id,omitempty"`
	Symbol      string                   `json:"stock_code"`
	TotalAmount float64                  `json:"total_amount"`
	LimitUp     *model.LimitUpEvent      `json:"limit_up_info"`
	Levels      []model.RetracementLevel `json:"fibonacci_levels"`
	Result      *model.AllocationResult  `json:"result"`
	Report      model.ValidationReport   `json:"validation_report"`
}

// Analyzer runs analyze requests. It holds no per-request state; concurrent
// calls need no coordination.
type Analyzer struct {
	Fetcher fetcher.Fetcher
	Store   storage.Store
	Cfg     *config.Config
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(f fetcher.Fetcher, store storage.Store, cfg *config.Config) *Analyzer {
	return &Analyzer{Fetcher: f, Store: store, Cfg: cfg}
}

// Analyze produces an order plan for the stock. The raw code is normalized
// first; scanner.ErrNoLimitUp propagates unwrapped so callers can map it to
// a user-facing "nothing found" outcome.
//
// Persisting the record is best-effort: a broken store costs the history
// entry, not the analysis.
func (a *Analyzer) Analyze(rawCode string, totalAmount float64) (*Analysis, error) {
	code, err := symbol.Normalize(rawCode)
	if err != nil {
		return nil, err
	}
	if totalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive, got %v", pyramid.ErrInvalidInput, totalAmount)
	}

	strat := a.Cfg.Strategy

	// Fetch a few extra bars so the window's first bar still has a
	// previous close to compare against.
	bars, err := a.Fetcher.FetchDailyBars(code, strat.LookbackDays+5)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}

	event, err := scanner.FindLimitUp(bars, strat.LookbackDays, strat.LimitUpThreshold)
	if err != nil {
		return nil, err
	}

	levels, err := retrace.Levels(event.High, event.Low)
	if err != nil {
		return nil, err
	}

	result, err := pyramid.Allocate(pyramid.Request{
		High:         event.High,
		Low:          event.Low,
		CurrentPrice: event.CurrentPrice,
		TotalAmount:  totalAmount,
		Stages:       strat.Stages,
		LotSize:      strat.LotSize,
	})
	if err != nil {
		return nil, err
	}

	report := pyramid.Validate(result, strat.ShortfallTolerance)

	analysis := &Analysis{
		Symbol:      code,
		TotalAmount: totalAmount,
		LimitUp:     event,
		Levels:      levels,
		Result:      result,
		Report:      report,
	}

	rec := &storage.PlanRecord{
		ID:          uuid.NewString(),
		Symbol:      code,
		TotalAmount: totalAmount,
		CreatedAt:   time.Now(),
		Event:       event,
		Levels:      levels,
		Result:      result,
		Report:      &report,
	}
	if err := a.Store.SavePlan(rec); err != nil {
		log.Printf("[WARN] save plan record: %v", err)
	} else {
		analysis.PlanID = rec.ID
	}

	return analysis, nil
}
