package trader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// GatewayClient submits orders to a REST order gateway that fronts the real
// brokerage terminal. Prices and amounts go over the wire as fixed
// 2-decimal strings so the gateway never re-parses binary floats.
//
// One instance is shared between HTTP handlers and the scheduler; all
// methods are safe for concurrent use.
type GatewayClient struct {
	BaseURL string
	APIKey  string
	LotSize int
	Client  *http.Client

	mu        sync.Mutex
	connected bool
}

// NewGatewayClient creates a gateway-backed execution client.
func NewGatewayClient(baseURL, apiKey string, lotSize int) *GatewayClient {
	if lotSize < 1 {
		lotSize = 100
	}
	return &GatewayClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		LotSize: lotSize,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *GatewayClient) Name() string { return "gateway" }

func (g *GatewayClient) Connect() error {
	req, err := http.NewRequest("GET", g.BaseURL+"/api/v1/session", nil)
	if err != nil {
		return err
	}
	g.auth(req)
	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway connect: status %d", resp.StatusCode)
	}
	g.mu.Lock()
	g.connected = true
	g.mu.Unlock()
	return nil
}

func (g *GatewayClient) Disconnect() error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	return nil
}

func (g *GatewayClient) isConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// gatewayOrder is the order payload accepted by the gateway.
type gatewayOrder struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
	Price     string `json:"price"`
	Shares    int    `json:"shares"`
	Amount    string `json:"amount,omitempty"`
}

type gatewayOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (g *GatewayClient) PlaceOrder(symbol string, price float64, shares int) (Ticket, error) {
	if !g.isConnected() {
		return Ticket{}, ErrNotConnected
	}

	payload := gatewayOrder{
		Symbol:    symbol,
		Side:      "buy",
		OrderType: "limit",
		Price:     decimal.NewFromFloat(price).StringFixed(2),
		Shares:    shares,
		Amount:    decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(shares))).StringFixed(2),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Ticket{}, err
	}

	req, err := http.NewRequest("POST", g.BaseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Ticket{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	g.auth(req)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Ticket{}, fmt.Errorf("gateway place order: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ticket{}, fmt.Errorf("gateway read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Ticket{}, fmt.Errorf("gateway place order: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out gatewayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Ticket{}, fmt.Errorf("gateway decode response: %w", err)
	}
	status := out.Status
	if status == "" {
		status = "pending"
	}
	return Ticket{
		OrderID:     out.OrderID,
		Symbol:      symbol,
		Price:       price,
		Shares:      shares,
		Status:      status,
		SubmittedAt: time.Now(),
	}, nil
}

func (g *GatewayClient) BatchPlace(symbol string, orders []model.Order) []Result {
	return batchPlace(g, symbol, orders, g.LotSize)
}

func (g *GatewayClient) PendingOrders() ([]Ticket, error) {
	if !g.isConnected() {
		return nil, ErrNotConnected
	}
	req, err := http.NewRequest("GET", g.BaseURL+"/api/v1/orders?status=pending", nil)
	if err != nil {
		return nil, err
	}
	g.auth(req)
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway pending orders: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway pending orders: status %d", resp.StatusCode)
	}
	var tickets []Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, fmt.Errorf("gateway decode pending orders: %w", err)
	}
	return tickets, nil
}

func (g *GatewayClient) auth(req *http.Request) {
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}
}
