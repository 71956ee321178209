package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "order_transitions_total",
		Help: "Committed order status transitions",
	}, []string{"to"})

	IllegalTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "order_illegal_transitions_total",
		Help: "Transition attempts rejected by the state guard",
	})

	MatchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "match_queries_total",
		Help: "Total rider matching queries",
	})

	LocationPings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "rider_location_pings_total",
		Help: "Total rider location pings ingested",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dispatch", Name: "livesync_active_subscriptions",
		Help: "Currently open LiveSync subscriptions",
	})

	FeedResubscribes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch", Name: "livesync_resubscribes_total",
		Help: "Feed resubscription attempts after transport loss",
	})
)
