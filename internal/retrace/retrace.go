package retrace

import (
	"errors"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// ErrInvalidRange is returned when high < low.
var ErrInvalidRange = errors.New("invalid range: high must be >= low")

// DefaultRatios is the fixed retracement ratio set, shallowest first.
var DefaultRatios = []float64{0.382, 0.5, 0.618, 0.7, 0.786}

// PriceAt returns the retracement price for one ratio:
// high − (high − low) × ratio.
func PriceAt(high, low, ratio float64) (float64, error) {
	if high < low {
		return 0, ErrInvalidRange
	}
	return high - (high-low)*ratio, nil
}

// Levels computes the price at every ratio in DefaultRatios. Prices are
// non-increasing as the ratio grows; when high == low every level collapses
// to that single price.
func Levels(high, low float64) ([]model.RetracementLevel, error) {
	if high < low {
		return nil, ErrInvalidRange
	}
	levels := make([]model.RetracementLevel, len(DefaultRatios))
	for i, r := range DefaultRatios {
		levels[i] = model.RetracementLevel{
			Ratio: r,
			Price: high - (high-low)*r,
		}
	}
	return levels, nil
}
