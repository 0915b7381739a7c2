// Package scheduler runs the daily order lifecycle tasks: sweep unfilled
// orders to disk before the close, and resubmit them after the next open.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/web3gaoyutang/snapback/internal/trader"
)

// Scheduler manages the cron tasks around the trading session.
type Scheduler struct {
	Cron        *cron.Cron
	Trader      trader.Client
	PendingFile string
	Ctx         context.Context
}

// pendingClearer is implemented by backends that can drop their pending book
// locally. Venue-side orders expire at the close on their own.
type pendingClearer interface {
	ClearPending()
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, tr trader.Client, pendingFile string) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Trader:      tr,
		PendingFile: pendingFile,
		Ctx:         ctx,
	}
}

// RegisterAll registers the pre-close sweep and post-open resubmit tasks.
func (s *Scheduler) RegisterAll(preCloseCron, postOpenCron string) error {
	if _, err := s.Cron.AddFunc(preCloseCron, s.preCloseTask); err != nil {
		return fmt.Errorf("register pre-close task: %w", err)
	}
	if _, err := s.Cron.AddFunc(postOpenCron, s.postOpenTask); err != nil {
		return fmt.Errorf("register post-open task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunPreCloseNow executes the pre-close sweep immediately (manual trigger).
func (s *Scheduler) RunPreCloseNow() {
	s.preCloseTask()
}

// RunPostOpenNow executes the post-open resubmit immediately (manual trigger).
func (s *Scheduler) RunPostOpenNow() {
	s.postOpenTask()
}

// cancelled reports whether the scheduler's context has been cancelled.
// Cron keeps firing until Stop returns, so tasks check before doing work.
func (s *Scheduler) cancelled() bool {
	if s.Ctx != nil && s.Ctx.Err() != nil {
		log.Println("[INFO] scheduler context cancelled, skipping task")
		return true
	}
	return false
}

// preCloseTask snapshots unfilled orders so they survive the session end.
// Limit orders at the venue expire at the close; the snapshot lets the
// post-open task put them back.
func (s *Scheduler) preCloseTask() {
	if s.cancelled() {
		return
	}
	log.Println("[INFO] running pre-close sweep")
	if err := s.Trader.Connect(); err != nil {
		log.Printf("[ERROR] pre-close connect: %v", err)
		return
	}

	tickets, err := s.Trader.PendingOrders()
	if err != nil {
		log.Printf("[ERROR] pre-close list pending: %v", err)
		return
	}
	if len(tickets) == 0 {
		log.Println("[INFO] no pending orders to sweep")
		if err := ClearPendingFile(s.PendingFile); err != nil {
			log.Printf("[WARN] clear pending file: %v", err)
		}
		return
	}

	if err := SavePending(s.PendingFile, tickets); err != nil {
		log.Printf("[ERROR] save pending orders: %v", err)
		return
	}
	if c, ok := s.Trader.(pendingClearer); ok {
		c.ClearPending()
	}
	log.Printf("[INFO] swept %d pending orders to %s", len(tickets), s.PendingFile)
}

// postOpenTask resubmits orders swept the previous session.
func (s *Scheduler) postOpenTask() {
	if s.cancelled() {
		return
	}
	log.Println("[INFO] running post-open resubmit")
	tickets, err := LoadPending(s.PendingFile)
	if err != nil {
		log.Printf("[ERROR] load pending orders: %v", err)
		return
	}
	if len(tickets) == 0 {
		log.Println("[INFO] no swept orders to resubmit")
		return
	}

	if err := s.Trader.Connect(); err != nil {
		log.Printf("[ERROR] post-open connect: %v", err)
		return
	}

	resubmitted := 0
	for _, t := range tickets {
		if _, err := s.Trader.PlaceOrder(t.Symbol, t.Price, t.Shares); err != nil {
			log.Printf("[ERROR] resubmit %s %d shares @ %.2f: %v", t.Symbol, t.Shares, t.Price, err)
			continue
		}
		resubmitted++
	}
	log.Printf("[INFO] resubmitted %d/%d swept orders", resubmitted, len(tickets))

	if resubmitted == len(tickets) {
		if err := ClearPendingFile(s.PendingFile); err != nil {
			log.Printf("[WARN] clear pending file: %v", err)
		}
	}
}
