package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Instruction documents emitted, partitioned by call state
	callFlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callflow_transitions_total",
			Help: "Total number of call-flow instruction documents emitted",
		},
		[]string{"state"},
	)

	// Completed legs written to the call log, partitioned by dial status
	callLegsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_legs_recorded_total",
			Help: "Total number of completed call legs recorded",
		},
		[]string{"status"},
	)

	// Outbound placement attempts, partitioned by outcome
	outboundCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_calls_total",
			Help: "Total number of outbound call placements",
		},
		[]string{"outcome"},
	)
)
