package pyramid

import (
	"fmt"

	"github.com/web3gaoyutang/snapback/internal/model"
)

// DefaultShortfallTolerance is the fraction of planned capital that may go
// unallocated to lot rounding before the report raises a shortfall issue.
const DefaultShortfallTolerance = 0.05

// Validate checks a finished plan and reports problems without mutating it.
// Validation never fails the pipeline; the plan is returned to the caller
// alongside the report so the UI can warn the user.
//
// shortfallTolerance <= 0 falls back to DefaultShortfallTolerance.
func Validate(result *model.AllocationResult, shortfallTolerance float64) model.ValidationReport {
	var report model.ValidationReport
	if result == nil {
		return report
	}
	if shortfallTolerance <= 0 {
		shortfallTolerance = DefaultShortfallTolerance
	}

	for _, o := range result.Orders {
		if o.Price <= 0 {
			report.Issues = append(report.Issues, model.ValidationIssue{
				Code:    model.IssueNonPositivePrice,
				OrderNo: o.OrderNo,
				Stage:   o.Stage,
				Message: fmt.Sprintf("order %d has non-positive price %.2f", o.OrderNo, o.Price),
			})
			continue
		}
		if o.Shares == 0 {
			report.Issues = append(report.Issues, model.ValidationIssue{
				Code:    model.IssueUnderLot,
				OrderNo: o.OrderNo,
				Stage:   o.Stage,
				Message: fmt.Sprintf("order %d amount %.2f buys less than one lot at %.2f", o.OrderNo, o.Amount, o.Price),
			})
		}
	}

	if result.Summary.Planned > 0 {
		frac := result.Summary.Shortfall / result.Summary.Planned
		if frac > shortfallTolerance {
			report.Issues = append(report.Issues, model.ValidationIssue{
				Code: model.IssueCapitalShortfall,
				Message: fmt.Sprintf("lot rounding left %.2f of %.2f unallocated (%.1f%%)",
					result.Summary.Shortfall, result.Summary.Planned, frac*100),
			})
		}
	}

	return report
}
