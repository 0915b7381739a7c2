package model

// StageConfig describes one pyramid stage: a retracement interval, the share
// of total capital committed to it, and how many orders it is split into.
type StageConfig struct {
	FibStart      float64 `yaml:"fib_start" json:"fib_start"`
	FibEnd        float64 `yaml:"fib_end" json:"fib_end"`
	PositionRatio float64 `yaml:"position_ratio" json:"position_ratio"`
	OrderCount    int     `yaml:"order_count" json:"order_count"`
}

// Order is a single planned limit buy.
//
// OrderNo runs 1-based across all stages in configuration order, never
// resorted by price. Shares is always a multiple of the lot size; an order
// whose amount rounds below one lot keeps Shares == 0 and stays in the plan.
type Order struct {
	OrderNo int     `json:"order_no"`
	Stage   int     `json:"stage"`
	Price   float64 `json:"price"`
	Amount  float64 `json:"amount"`
	Shares  int     `json:"shares"`
}

// StageBreakdown summarizes one stage of an allocation.
type StageBreakdown struct {
	Stage      int     `json:"stage"`
	OrderCount int     `json:"order_count"`
	Planned    float64 `json:"planned"`
	Allocated  float64 `json:"allocated"`
}

// Summary aggregates an allocation result. Allocated counts only capital
// actually covered by whole lots, so Shortfall reports what lot rounding
// left unspent rather than absorbing it silently.
type Summary struct {
	TotalOrders int              `json:"total_orders"`
	Planned     float64          `json:"total_amount_planned"`
	Allocated   float64          `json:"total_amount_allocated"`
	Shortfall   float64          `json:"shortfall"`
	Stages      []StageBreakdown `json:"stage_breakdown"`
}

// AllocationResult is the full order plan produced by the engine.
type AllocationResult struct {
	CurrentPrice float64 `json:"current_price"`
	Orders       []Order `json:"orders"`
	Summary      Summary `json:"summary"`
}

// Validation issue codes.
const (
	IssueUnderLot         = "under_lot"
	IssueNonPositivePrice = "non_positive_price"
	IssueCapitalShortfall = "capital_shortfall"
)

// ValidationIssue flags one problem found in a plan. OrderNo is 0 for
// plan-level issues.
type ValidationIssue struct {
	Code    string `json:"code"`
	OrderNo int    `json:"order_no,omitempty"`
	Stage   int    `json:"stage,omitempty"`
	Message string `json:"message"`
}

// ValidationReport annotates a plan without modifying it. A non-OK report
// does not abort the pipeline; the plan is still returned to the caller.
type ValidationReport struct {
	Issues []ValidationIssue `json:"issues"`
}

// OK reports whether validation found no issues.
func (r ValidationReport) OK() bool { return len(r.Issues) == 0 }

// UnderLotOrders returns the order numbers flagged as below one lot.
func (r ValidationReport) UnderLotOrders() []int {
	var nos []int
	for _, is := range r.Issues {
		if is.Code == IssueUnderLot {
			nos = append(nos, is.OrderNo)
		}
	}
	return nos
}
