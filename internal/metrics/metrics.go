// Package metrics содержит счётчики Prometheus движка закупок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatusTransitions считает переходы жизненного цикла по парам статусов.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupbuy_status_transitions_total",
		Help: "Number of group purchase status transitions.",
	}, []string{"from", "to"})

	// BidsPlaced считает размещённые и обновлённые ставки.
	BidsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupbuy_bids_placed_total",
		Help: "Number of bids placed, by kind (new or revision).",
	}, []string{"kind"})

	// VotesCast считает учтённые голоса.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupbuy_votes_cast_total",
		Help: "Number of votes cast, by approval.",
	}, []string{"approved"})

	// PenaltiesApplied считает наложенные штрафы по типам.
	PenaltiesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupbuy_penalties_applied_total",
		Help: "Number of penalties applied, by type.",
	}, []string{"type"})
)
