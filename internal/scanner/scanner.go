package scanner

import (
	"errors"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// ErrNoLimitUp means no bar in the lookback window rose by the threshold.
// This is an expected outcome, not a system fault; callers should tell the
// user rather than retry.
var ErrNoLimitUp = errors.New("no limit-up day found in lookback window")

// ErrNoBars is returned when the bar slice is empty.
var ErrNoBars = errors.New("no bars provided")

// FindLimitUp scans the most recent lookbackDays bars, newest first, for a
// day whose close rose at least threshold over the previous close. When
// several days qualify the most recent one wins.
//
// Bars must be ordered by date, oldest first. The bar immediately before the
// window still supplies the previous close for the window's first bar. The
// returned event's High/Low span the qualifying day through the latest bar
// inclusive; CurrentPrice is the latest close.
func FindLimitUp(bars []model.Bar, lookbackDays int, threshold float64) (*model.LimitUpEvent, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	start := len(bars) - lookbackDays
	if start < 1 {
		start = 1 // index 0 has no previous close
	}

	for i := len(bars) - 1; i >= start; i-- {
		prevClose := bars[i-1].Close
		if prevClose <= 0 {
			continue
		}
		rise := (bars[i].Close - prevClose) / prevClose
		if rise >= threshold {
			return buildEvent(bars, i), nil
		}
	}
	return nil, ErrNoLimitUp
}

// buildEvent derives the high/low range from the qualifying bar through the
// most recent bar.
func buildEvent(bars []model.Bar, limitIdx int) *model.LimitUpEvent {
	high := bars[limitIdx].High
	low := bars[limitIdx].Low
	for _, b := range bars[limitIdx:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	last := bars[len(bars)-1]
	return &model.LimitUpEvent{
		Date:         bars[limitIdx].Date,
		LimitPrice:   bars[limitIdx].Close,
		High:         high,
		Low:          low,
		CurrentPrice: last.Close,
	}
}
