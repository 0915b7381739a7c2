package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/web3gaoyutang/snapback/internal/trader"
)

func placeTestOrders(t *testing.T, p *trader.PaperClient, n int) {
	t.Helper()
	if err := p.Connect(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if _, err := p.PlaceOrder("sh.600000", 12.50-float64(i)*0.1, 1100); err != nil {
			t.Fatalf("place order %d: %v", i, err)
		}
	}
}

func TestPendingFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")

	// Missing file is not an error.
	tickets, err := LoadPending(path)
	if err != nil || tickets != nil {
		t.Fatalf("expected empty load from missing file, got %v, %v", tickets, err)
	}

	want := []trader.Ticket{
		{OrderID: "a", Symbol: "sh.600000", Price: 12.50, Shares: 1100, Status: "pending"},
		{OrderID: "b", Symbol: "sh.600000", Price: 12.42, Shares: 1100, Status: "pending"},
	}
	if err := SavePending(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadPending(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].OrderID != "a" || got[1].Price != 12.42 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := ClearPendingFile(path); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected pending file removed")
	}
	if err := ClearPendingFile(path); err != nil {
		t.Errorf("clearing a missing file must not fail: %v", err)
	}
}

func TestPreCloseSweepAndPostOpenResubmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	paper := trader.NewPaperClient(100)
	placeTestOrders(t, paper, 3)

	s := NewScheduler(context.Background(), paper, path)
	s.RunPreCloseNow()

	tickets, err := LoadPending(path)
	if err != nil {
		t.Fatalf("load swept orders: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 swept orders, got %d", len(tickets))
	}
	pending, _ := paper.PendingOrders()
	if len(pending) != 0 {
		t.Errorf("expected paper book cleared after sweep, got %d", len(pending))
	}

	s.RunPostOpenNow()
	pending, _ = paper.PendingOrders()
	if len(pending) != 3 {
		t.Fatalf("expected 3 resubmitted orders, got %d", len(pending))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected pending file removed after full resubmit")
	}
}

func TestPreCloseSweep_NothingPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	if err := SavePending(path, []trader.Ticket{{OrderID: "stale"}}); err != nil {
		t.Fatal(err)
	}

	s := NewScheduler(context.Background(), trader.NewPaperClient(100), path)
	s.RunPreCloseNow()

	// A sweep that finds nothing drops any stale snapshot.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected stale pending file removed")
	}
}

func TestPostOpen_NoFileIsNoop(t *testing.T) {
	paper := trader.NewPaperClient(100)
	s := NewScheduler(context.Background(), paper, filepath.Join(t.TempDir(), "pending.json"))
	s.RunPostOpenNow()
	pending, _ := paper.PendingOrders()
	if len(pending) != 0 {
		t.Errorf("expected no orders, got %d", len(pending))
	}
}

func TestTasksSkipAfterCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	paper := trader.NewPaperClient(100)
	placeTestOrders(t, paper, 2)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx, paper, path)
	cancel()

	s.RunPreCloseNow()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no sweep after cancellation")
	}
	pending, _ := paper.PendingOrders()
	if len(pending) != 2 {
		t.Errorf("expected paper book untouched, got %d pending", len(pending))
	}

	if err := SavePending(path, []trader.Ticket{{OrderID: "a", Symbol: "sh.600000", Price: 12.50, Shares: 1100}}); err != nil {
		t.Fatal(err)
	}
	s.RunPostOpenNow()
	pending, _ = paper.PendingOrders()
	if len(pending) != 2 {
		t.Errorf("expected no resubmission after cancellation, got %d pending", len(pending))
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("expected snapshot left in place after skipped resubmit")
	}
}

func TestRegisterAll_BadCron(t *testing.T) {
	s := NewScheduler(context.Background(), trader.NewPaperClient(100), "x.json")
	if err := s.RegisterAll("not a cron", "0 33 9 * * 1-5"); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if err := s.RegisterAll("0 57 14 * * 1-5", "0 33 9 * * 1-5"); err != nil {
		t.Fatalf("valid expressions must register: %v", err)
	}
}
