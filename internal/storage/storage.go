package storage

import (
	"errors"
	"time"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// ErrPlanNotFound is returned when no plan exists for a given ID.
var ErrPlanNotFound = errors.New("plan not found")

// PlanRecord is one persisted analysis: the inputs that produced the plan,
// the plan itself, and its validation report.
type PlanRecord struct {
	ID          string                    `json:"id"`
	Symbol      string                    `json:"symbol"`
	TotalAmount float64                   `json:"total_amount"`
	CreatedAt   time.Time                 `json:"created_at"`
	Event       *model.LimitUpEvent       `json:"limit_up_info"`
	Levels      []model.RetracementLevel  `json:"fibonacci_levels"`
	Result      *model.AllocationResult   `json:"result"`
	Report      *model.ValidationReport   `json:"validation_report"`
}

// Statistics summarizes the plan history.
type Statistics struct {
	TotalPlans   int        `json:"total_plans"`
	TotalSymbols int        `json:"total_symbols"`
	TotalAmount  float64    `json:"total_amount"`
	FirstPlanAt  *time.Time `json:"first_plan_at,omitempty"`
	LastPlanAt   *time.Time `json:"last_plan_at,omitempty"`
}

// Store persists plan history for later review.
type Store interface {
	SavePlan(rec *PlanRecord) error
	PlanByID(id string) (*PlanRecord, error)
	RecentPlans(limit int) ([]*PlanRecord, error)
	PlansBySymbol(symbol string) ([]*PlanRecord, error)
	DeletePlan(id string) error
	Statistics() (*Statistics, error)
	Close() error
}

// NoopStore is a no-op implementation used when SQLite is not configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) SavePlan(_ *PlanRecord) error                  { return nil }
func (n *NoopStore) PlanByID(_ string) (*PlanRecord, error)        { return nil, ErrPlanNotFound }
func (n *NoopStore) RecentPlans(_ int) ([]*PlanRecord, error)      { return nil, nil }
func (n *NoopStore) PlansBySymbol(_ string) ([]*PlanRecord, error) { return nil, nil }
func (n *NoopStore) DeletePlan(_ string) error                     { return ErrPlanNotFound }
func (n *NoopStore) Statistics() (*Statistics, error)              { return &Statistics{}, nil }
func (n *NoopStore) Close() error                                  { return nil }
