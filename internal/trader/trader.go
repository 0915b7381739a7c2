// Package trader submits planned orders to an execution backend. The core
// engine never depends on which backend is selected; it only ever produces
// a plan.
package trader

import (
	"errors"
	"fmt"
	"time"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// ErrNotConnected is returned when an order is placed before Connect.
var ErrNotConnected = errors.New("trader not connected")

// Ticket identifies one submitted order at the execution backend.
type Ticket struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Shares      int       `json:"shares"`
	Status      string    `json:"status"` // "pending", "filled", "cancelled"
	SubmittedAt time.Time `json:"submitted_at"`
}

// Result reports the outcome of submitting one planned order.
type Result struct {
	Order   model.Order `json:"order"`
	Success bool        `json:"success"`
	OrderID string      `json:"order_id,omitempty"`
	Shares  int         `json:"shares,omitempty"`
	Message string      `json:"message"`
}

// Client is the execution backend interface.
type Client interface {
	Connect() error
	// PlaceOrder submits a single limit buy. Shares must already be a lot
	// multiple.
	PlaceOrder(symbol string, price float64, shares int) (Ticket, error)
	// BatchPlace submits a plan's orders in sequence, recomputing lot
	// volume from each order's amount and price. Sub-lot orders are
	// rejected per-order, never dropped silently.
	BatchPlace(symbol string, orders []model.Order) []Result
	// PendingOrders lists submitted orders not yet filled.
	PendingOrders() ([]Ticket, error)
	Disconnect() error
	Name() string
}

// batchPlace is the shared BatchPlace implementation. Volume is recomputed
// here because callers may edit amounts between planning and execution.
func batchPlace(c Client, symbol string, orders []model.Order, lotSize int) []Result {
	results := make([]Result, 0, len(orders))
	for _, o := range orders {
		if o.Price <= 0 {
			results = append(results, Result{
				Order: o, Success: false,
				Message: fmt.Sprintf("invalid price %.2f", o.Price),
			})
			continue
		}
		volume := int(o.Amount/o.Price) / lotSize * lotSize
		if volume < lotSize {
			results = append(results, Result{
				Order: o, Success: false,
				Message: fmt.Sprintf("amount below one lot (needs at least %.2f)", o.Price*float64(lotSize)),
			})
			continue
		}
		ticket, err := c.PlaceOrder(symbol, o.Price, volume)
		if err != nil {
			results = append(results, Result{Order: o, Success: false, Shares: volume, Message: err.Error()})
			continue
		}
		results = append(results, Result{
			Order: o, Success: true,
			OrderID: ticket.OrderID, Shares: volume,
			Message: "order submitted",
		})
	}
	return results
}
