package trader

import (
	"errors"
	"strings"
	"testing"

	"github.com/web3gaoyutang/snapback/internal/model"
)

func TestPaperClient_PlaceAndPending(t *testing.T) {
	p := NewPaperClient(100)
	if err := p.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ticket, err := p.PlaceOrder("sh.600000", 12.50, 1100)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if ticket.OrderID == "" || ticket.Status != "pending" {
		t.Errorf("unexpected ticket: %+v", ticket)
	}

	pending, err := p.PendingOrders()
	if err != nil {
		t.Fatalf("pending orders: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}

	p.ClearPending()
	pending, _ = p.PendingOrders()
	if len(pending) != 0 {
		t.Errorf("expected no pending orders after clear, got %d", len(pending))
	}
}

func TestPaperClient_RequiresConnect(t *testing.T) {
	p := NewPaperClient(100)
	if _, err := p.PlaceOrder("sh.600000", 10, 100); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestBatchPlace_RecomputesLotsAndRejectsSubLot(t *testing.T) {
	p := NewPaperClient(100)
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	orders := []model.Order{
		{OrderNo: 1, Stage: 1, Price: 12.50, Amount: 14000},
		{OrderNo: 2, Stage: 1, Price: 12.50, Amount: 140}, // under one lot
		{OrderNo: 3, Stage: 2, Price: 0, Amount: 10000},   // invalid price
	}
	results := p.BatchPlace("sh.600000", orders)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success || results[0].Shares != 1100 {
		t.Errorf("order 1: expected success with 1100 shares, got %+v", results[0])
	}
	if results[1].Success {
		t.Error("order 2: sub-lot order must be rejected")
	}
	if !strings.Contains(results[1].Message, "one lot") {
		t.Errorf("order 2: message must explain the lot minimum, got %q", results[1].Message)
	}
	if results[2].Success {
		t.Error("order 3: zero-price order must be rejected")
	}
}
