package trader

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// PaperClient simulates an execution backend. Orders are logged and held
// pending in memory; nothing ever fills.
type PaperClient struct {
	LotSize int

	mu        sync.Mutex
	connected bool
	tickets   []Ticket
}

// NewPaperClient creates a simulated execution client.
func NewPaperClient(lotSize int) *PaperClient {
	if lotSize < 1 {
		lotSize = 100
	}
	return &PaperClient{LotSize: lotSize}
}

func (p *PaperClient) Name() string { return "paper" }

func (p *PaperClient) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	log.Println("[INFO] paper trader connected")
	return nil
}

func (p *PaperClient) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	log.Println("[INFO] paper trader disconnected")
	return nil
}

func (p *PaperClient) PlaceOrder(symbol string, price float64, shares int) (Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return Ticket{}, ErrNotConnected
	}
	t := Ticket{
		OrderID:     "PAPER-" + uuid.NewString(),
		Symbol:      symbol,
		Price:       price,
		Shares:      shares,
		Status:      "pending",
		SubmittedAt: time.Now(),
	}
	p.tickets = append(p.tickets, t)
	log.Printf("[INFO] paper order: %s %d shares @ %.2f", symbol, shares, price)
	return t, nil
}

func (p *PaperClient) BatchPlace(symbol string, orders []model.Order) []Result {
	return batchPlace(p, symbol, orders, p.LotSize)
}

func (p *PaperClient) PendingOrders() ([]Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Ticket, 0, len(p.tickets))
	for _, t := range p.tickets {
		if t.Status == "pending" {
			out = append(out, t)
		}
	}
	return out, nil
}

// ClearPending drops all pending tickets, simulating end-of-day cancellation.
func (p *PaperClient) ClearPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets = nil
}
