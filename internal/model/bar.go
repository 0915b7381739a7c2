package model

import "time"

// Bar represents a single daily candlestick.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// LimitUpEvent describes the most recent limit-up day and the price range
// observed from that day through the latest bar.
//
// CurrentPrice may exceed High while intraday data is still updating; callers
// must tolerate that.
type LimitUpEvent struct {
	Date         time.Time `json:"date"`
	LimitPrice   float64   `json:"limit_price"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	CurrentPrice float64   `json:"current_price"`
}

// RetracementLevel is a Fibonacci retracement price for one ratio.
type RetracementLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}
