// Package telemetry exposes the ledger's Prometheus metrics. Counters are
// registered on the default registry and served by the ops endpoint's
// promhttp handler.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "events_appended_total",
		Help:      "Events appended to a ledger, by chat scope and event kind",
	}, []string{"scope", "kind"})

	MessagesPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "messages_pushed_total",
		Help:      "Messages pushed, by content kind",
	}, []string{"content"})

	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "messages_deleted_total",
		Help:      "Messages marked deleted",
	})

	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "reaction_toggles_total",
		Help:      "Reaction toggles, by resulting direction (added or removed)",
	}, []string{"direction"})

	PollVotes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "poll_votes_total",
		Help:      "Poll votes registered or deleted",
	})

	SearchQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "search_queries_total",
		Help:      "Message search queries served",
	})

	ChatsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatledger",
		Name:      "chats_open",
		Help:      "Chats currently loaded in the registry",
	})

	JournalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatledger",
		Name:      "journal_bytes",
		Help:      "Approximate on-disk size of the event journal",
	})

	PurgedContent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "purged_deleted_content_total",
		Help:      "Deleted message bodies excised by the maintenance sweep",
	})

	PollsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatledger",
		Name:      "polls_ended_total",
		Help:      "Polls closed, by user action or by the overdue sweep",
	})
)
