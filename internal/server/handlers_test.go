package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/web3gaoyutang/snapback/internal/config"
	"github.com/web3gaoyutang/snapback/internal/fetcher"
	"github.com/web3gaoyutang/snapback/internal/model"
	"github.com/web3gaoyutang/snapback/internal/service"
	"github.com/web3gaoyutang/snapback/internal/storage"
	"github.com/web3gaoyutang/snapback/internal/trader"
)

func limitUpBars() []model.Bar {
	day := func(n int) time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	}
	bars := make([]model.Bar, 0, 20)
	for i := 0; i < 15; i++ {
		bars = append(bars, model.Bar{Date: day(i), Open: 10, High: 10.1, Low: 9.9, Close: 10})
	}
	bars = append(bars,
		model.Bar{Date: day(15), Open: 10.0, High: 11.00, Low: 10.00, Close: 11.0},
		model.Bar{Date: day(16), Open: 11.5, High: 13.80, Low: 11.40, Close: 12.9},
		model.Bar{Date: day(17), Open: 12.5, High: 12.60, Low: 11.20, Close: 12.1},
		model.Bar{Date: day(18), Open: 12.2, High: 12.50, Low: 12.10, Close: 12.30},
	)
	return bars
}

func newTestServer(t *testing.T, bars []model.Bar) (*Server, storage.Store) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	an := service.NewAnalyzer(&fetcher.MockFetcher{Bars: bars}, store, cfg)
	tr := trader.NewPaperClient(cfg.Strategy.LotSize)
	return New(an, store, tr, cfg), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: bad response body %q: %v", method, path, rr.Body.String(), err)
	}
	return rr, env
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	rr, env := doJSON(t, s.Handler(), http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected ok, got %d %+v", rr.Code, env)
	}
}

func TestHandleAnalyze(t *testing.T) {
	s, store := newTestServer(t, limitUpBars())
	rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze",
		map[string]interface{}{"stock_code": "600000", "total_amount": 100000})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, env.Message)
	}
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}

	raw, _ := json.Marshal(env.Data)
	var analysis service.Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.Symbol != "sh.600000" {
		t.Errorf("expected normalized symbol, got %q", analysis.Symbol)
	}
	if analysis.Result == nil || analysis.Result.Summary.TotalOrders != 8 {
		t.Fatalf("expected 8 planned orders, got %+v", analysis.Result)
	}

	// The plan lands in history.
	if _, err := store.PlanByID(analysis.PlanID); err != nil {
		t.Errorf("plan not persisted: %v", err)
	}
}

func TestHandleAnalyze_NoLimitUp(t *testing.T) {
	s, _ := newTestServer(t, fetcher.GenerateMockBars(10, 70))
	rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze",
		map[string]interface{}{"stock_code": "600000", "total_amount": 100000})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if env.Success {
		t.Error("expected failure envelope")
	}
}

func TestHandleAnalyze_BadInput(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	cases := []struct {
		name string
		body interface{}
	}{
		{"bad code", map[string]interface{}{"stock_code": "bogus", "total_amount": 100000}},
		{"zero amount", map[string]interface{}{"stock_code": "600000", "total_amount": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %+v", rr.Code, env)
			}
		})
	}
}

func TestHandleAnalyze_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleExecute(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/execute",
		map[string]interface{}{"stock_code": "600000", "total_amount": 100000})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, env.Message)
	}

	raw, _ := json.Marshal(env.Data)
	var payload struct {
		Results []trader.Result `json:"results"`
		Placed  int             `json:"placed"`
		Total   int             `json:"total"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode execute payload: %v", err)
	}
	if payload.Total != 8 || payload.Placed != 8 {
		t.Fatalf("expected 8/8 orders placed, got %d/%d", payload.Placed, payload.Total)
	}
	for _, res := range payload.Results {
		if !res.Success || res.OrderID == "" {
			t.Errorf("order %d not placed: %+v", res.Order.OrderNo, res)
		}
	}
}

func TestHandleExecute_CountsAnalysis(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	before := testutil.ToFloat64(mtxAnalyses.WithLabelValues("ok"))

	rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/execute",
		map[string]interface{}{"stock_code": "600000", "total_amount": 100000})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, env.Message)
	}

	after := testutil.ToFloat64(mtxAnalyses.WithLabelValues("ok"))
	if after != before+1 {
		t.Errorf("expected ok analyses to grow by 1, got %v -> %v", before, after)
	}
}

func TestHandleHistoryAndStatistics(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	for i := 0; i < 3; i++ {
		code := "600000"
		if i == 2 {
			code = "000001"
		}
		rr, env := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze",
			map[string]interface{}{"stock_code": code, "total_amount": float64(50000 * (i + 1))})
		if rr.Code != http.StatusOK {
			t.Fatalf("seed analyze %d: %d %s", i, rr.Code, env.Message)
		}
	}

	rr, env := doJSON(t, s.Handler(), http.MethodGet, "/api/history?limit=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: %d", rr.Code)
	}
	var plans []storage.PlanRecord
	raw, _ := json.Marshal(env.Data)
	if err := json.Unmarshal(raw, &plans); err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans with limit=2, got %d", len(plans))
	}

	rr, env = doJSON(t, s.Handler(), http.MethodGet, "/api/history?stock_code=600000", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history by symbol: %d", rr.Code)
	}
	raw, _ = json.Marshal(env.Data)
	plans = nil
	if err := json.Unmarshal(raw, &plans); err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans for sh.600000, got %d", len(plans))
	}

	rr, env = doJSON(t, s.Handler(), http.MethodGet, "/api/statistics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("statistics: %d", rr.Code)
	}
	var stats storage.Statistics
	raw, _ = json.Marshal(env.Data)
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalPlans != 3 || stats.TotalSymbols != 2 {
		t.Errorf("unexpected statistics: %+v", stats)
	}
}

func TestHandleHistory_BadLimit(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	rr, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/history?limit=zero", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHandleOrderDetailAndDelete(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	_, env := doJSON(t, s.Handler(), http.MethodPost, "/api/analyze",
		map[string]interface{}{"stock_code": "600000", "total_amount": 100000})
	raw, _ := json.Marshal(env.Data)
	var analysis service.Analysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		t.Fatal(err)
	}

	path := fmt.Sprintf("/api/order/%s", analysis.PlanID)
	rr, env := doJSON(t, s.Handler(), http.MethodGet, path, nil)
	if rr.Code != http.StatusOK || !env.Success {
		t.Fatalf("order detail: %d %+v", rr.Code, env)
	}

	rr, _ = doJSON(t, s.Handler(), http.MethodDelete, path, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("order delete: %d", rr.Code)
	}
	rr, _ = doJSON(t, s.Handler(), http.MethodGet, path, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestHandleOrder_NotFound(t *testing.T) {
	s, _ := newTestServer(t, limitUpBars())
	rr, _ := doJSON(t, s.Handler(), http.MethodGet, "/api/order/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr, _ = doJSON(t, s.Handler(), http.MethodDelete, "/api/order/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on delete, got %d", rr.Code)
	}
}
