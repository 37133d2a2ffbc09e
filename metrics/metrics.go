package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "picksy_active_rooms",
		Help: "Number of rooms currently held in memory.",
	})

	RoomsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picksy_rooms_evicted_total",
		Help: "Rooms removed from memory (closed, idle or admin-evicted).",
	})

	BallotsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picksy_ballots_received_total",
		Help: "Ballots accepted by the poll aggregator.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picksy_events_published_total",
		Help: "Room events handed to the broadcaster, by event type.",
	}, []string{"type"})

	SubscribersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "picksy_subscribers_dropped_total",
		Help: "Broadcast subscribers disconnected because their queue overflowed.",
	})

	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picksy_broker_commands_total",
		Help: "Commands consumed from the broker, by command name.",
	}, []string{"cmd"})
)
