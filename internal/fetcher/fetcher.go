package fetcher

import (
	"time"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// Fetcher defines the interface for fetching daily bar history.
type Fetcher interface {
	// FetchDailyBars returns up to `days` daily bars for the symbol,
	// ordered oldest first.
	FetchDailyBars(symbol string, days int) ([]model.Bar, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars []model.Bar
	Err  error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ string, days int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Bars) > days {
		return m.Bars[len(m.Bars)-days:], nil
	}
	return m.Bars, nil
}

// GenerateMockBars builds a gently drifting series around basePrice.
func GenerateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
