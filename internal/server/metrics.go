package server

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapback_analyses_total",
			Help: "Analyze requests by outcome (ok|no_limit_up|bad_request|error)",
		},
		[]string{"outcome"},
	)

	mtxOrdersPlanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapback_orders_planned_total",
			Help: "Orders emitted in generated plans",
		},
	)

	mtxUnderLot = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapback_under_lot_orders_total",
			Help: "Planned orders whose amount bought less than one lot",
		},
	)

	mtxOrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapback_orders_submitted_total",
			Help: "Orders submitted to the execution backend by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(mtxAnalyses, mtxOrdersPlanned, mtxUnderLot, mtxOrdersSubmitted)
}
