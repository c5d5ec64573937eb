package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RulesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrolink_automation_rules_evaluated_total",
		Help: "Total number of rule evaluations, labelled by rule type.",
	}, []string{"rule_type"})

	RulesMatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrolink_automation_rules_matched_total",
		Help: "Total number of rule matches, labelled by rule type.",
	}, []string{"rule_type"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrolink_automation_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	ExecutionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agrolink_automation_executions_total",
		Help: "Total number of execution records written, labelled by outcome.",
	}, []string{"status"})

	RuleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agrolink_automation_rule_duration_ms",
		Help:    "Per-rule evaluate+execute latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	CacheRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agrolink_automation_cached_rules",
		Help: "Number of active rules currently held in the in-memory cache.",
	})
)
