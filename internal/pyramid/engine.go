package pyramid

import (
	"errors"
	"fmt"
	"math"

	"github.com/web3gaoyutang/snapback/internal/model"
	"github.com/web3gaoyutang/snapback/internal/retrace"
)

// ratioTolerance bounds how far the stage position ratios may drift from
// summing to exactly 1.0 before the configuration is rejected.
const ratioTolerance = 1e-6

// DefaultLotSize is the minimum tradable share increment (one hand).
const DefaultLotSize = 100

var (
	// ErrInvalidInput flags a bad per-call input such as a non-positive
	// total amount.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration flags a malformed stage set. The engine never
	// normalizes ratios silently; a bad split must be fixed by the caller.
	ErrInvalidConfiguration = errors.New("invalid stage configuration")
)

// DefaultStages is the stock two-stage pyramid: 70% of capital across 5
// orders in the 0.5 to 0.618 retracement, then 30% across 3 orders in the
// 0.618 to 0.7 retracement.
func DefaultStages() []model.StageConfig {
	return []model.StageConfig{
		{FibStart: 0.500, FibEnd: 0.618, PositionRatio: 0.70, OrderCount: 5},
		{FibStart: 0.618, FibEnd: 0.700, PositionRatio: 0.30, OrderCount: 3},
	}
}

// Request carries everything Allocate needs. CurrentPrice is informational;
// it is echoed into the result so downstream reporting can compare planned
// entries against the latest close.
type Request struct {
	High         float64
	Low          float64
	CurrentPrice float64
	TotalAmount  float64
	Stages       []model.StageConfig
	LotSize      int
}

// Allocate partitions TotalAmount into limit orders across the configured
// stages. Per stage: capital = total × position_ratio split evenly over
// order_count orders, priced at evenly spaced points across the closed
// interval [price(fib_start), price(fib_end)]. Prices and amounts are
// rounded to 2 decimals at emission; shares are floored to whole lots.
//
// The function is pure: identical requests produce identical results.
func Allocate(req Request) (*model.AllocationResult, error) {
	if req.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive, got %v", ErrInvalidInput, req.TotalAmount)
	}
	lot := req.LotSize
	if lot == 0 {
		lot = DefaultLotSize
	}
	if lot < 1 {
		return nil, fmt.Errorf("%w: lot size must be >= 1, got %d", ErrInvalidInput, req.LotSize)
	}
	if err := checkStages(req.Stages); err != nil {
		return nil, err
	}

	result := &model.AllocationResult{
		CurrentPrice: req.CurrentPrice,
		Summary: model.Summary{
			Planned: req.TotalAmount,
			Stages:  make([]model.StageBreakdown, 0, len(req.Stages)),
		},
	}

	orderNo := 0
	for i, stage := range req.Stages {
		stageID := i + 1
		startPrice, err := retrace.PriceAt(req.High, req.Low, stage.FibStart)
		if err != nil {
			return nil, fmt.Errorf("stage %d start bound: %w", stageID, err)
		}
		endPrice, err := retrace.PriceAt(req.High, req.Low, stage.FibEnd)
		if err != nil {
			return nil, fmt.Errorf("stage %d end bound: %w", stageID, err)
		}

		stageCapital := req.TotalAmount * stage.PositionRatio
		perOrder := stageCapital / float64(stage.OrderCount)

		breakdown := model.StageBreakdown{
			Stage:      stageID,
			OrderCount: stage.OrderCount,
			Planned:    round2(stageCapital),
		}

		for _, price := range spacedPrices(startPrice, endPrice, stage.OrderCount) {
			orderNo++
			o := model.Order{
				OrderNo: orderNo,
				Stage:   stageID,
				Price:   round2(price),
				Amount:  round2(perOrder),
			}
			// Shares derive from the emitted figures so the plan a caller
			// sees is exactly the plan that was sized.
			o.Shares = lotShares(o.Amount, o.Price, lot)
			result.Orders = append(result.Orders, o)
			breakdown.Allocated += float64(o.Shares) * o.Price
		}

		breakdown.Allocated = round2(breakdown.Allocated)
		result.Summary.Stages = append(result.Summary.Stages, breakdown)
		result.Summary.Allocated += breakdown.Allocated
	}

	result.Summary.TotalOrders = len(result.Orders)
	result.Summary.Allocated = round2(result.Summary.Allocated)
	result.Summary.Shortfall = round2(result.Summary.Planned - result.Summary.Allocated)
	return result, nil
}

func checkStages(stages []model.StageConfig) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages configured", ErrInvalidConfiguration)
	}
	sum := 0.0
	for i, s := range stages {
		if s.OrderCount < 1 {
			return fmt.Errorf("%w: stage %d order_count must be >= 1, got %d", ErrInvalidConfiguration, i+1, s.OrderCount)
		}
		if s.PositionRatio <= 0 {
			return fmt.Errorf("%w: stage %d position_ratio must be positive, got %v", ErrInvalidConfiguration, i+1, s.PositionRatio)
		}
		if s.FibStart < 0 || s.FibEnd < 0 {
			return fmt.Errorf("%w: stage %d retracement ratios must be >= 0", ErrInvalidConfiguration, i+1)
		}
		sum += s.PositionRatio
	}
	if math.Abs(sum-1.0) > ratioTolerance {
		return fmt.Errorf("%w: position ratios sum to %v, want 1.0", ErrInvalidConfiguration, sum)
	}
	return nil
}

// spacedPrices returns count evenly spaced prices across [start, end],
// inclusive of both endpoints. A single order sits at the start bound.
func spacedPrices(start, end float64, count int) []float64 {
	prices := make([]float64, count)
	if count == 1 {
		prices[0] = start
		return prices
	}
	step := (end - start) / float64(count-1)
	for i := range prices {
		prices[i] = start + float64(i)*step
	}
	// Pin the last point to the exact bound; accumulated float steps may
	// land a hair off it.
	prices[count-1] = end
	return prices
}

// lotShares floors amount/price to whole lots. A zero result is legitimate:
// the order is still emitted and the validator flags it.
func lotShares(amount, price float64, lot int) int {
	if price <= 0 {
		return 0
	}
	shares := int(amount / price)
	return shares / lot * lot
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
