// Package metrics holds the Prometheus collectors for the chat client cache
// and the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeInvalid   = "invalid"
)

// Cache counts optimistic submissions and how they settle.
type Cache struct {
	Submissions prometheus.Counter
	Settlements *prometheus.CounterVec
	Retries     *prometheus.CounterVec
	// Stale counts writes that were dropped because the pending entry was
	// already settled.
	Stale prometheus.Counter
}

// NewCache creates the cache collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewCache(reg prometheus.Registerer) *Cache {
	f := promauto.With(reg)
	return &Cache{
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "chat_cache_submissions_total",
			Help: "Messages inserted optimistically.",
		}),
		Settlements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_cache_settlements_total",
			Help: "Pending messages settled, by outcome.",
		}, []string{"outcome"}),
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_cache_retries_total",
			Help: "Retries of failed messages, by outcome.",
		}, []string{"outcome"}),
		Stale: f.NewCounter(prometheus.CounterOpts{
			Name: "chat_cache_stale_settlements_total",
			Help: "Settlements ignored because the entry had already settled.",
		}),
	}
}

// Server counts RPCs handled by the chat server.
type Server struct {
	Requests *prometheus.CounterVec
	Injected prometheus.Counter
}

func NewServer(reg prometheus.Registerer) *Server {
	f := promauto.With(reg)
	return &Server{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_server_requests_total",
			Help: "RPCs handled, by method and status code.",
		}, []string{"method", "code"}),
		Injected: f.NewCounter(prometheus.CounterOpts{
			Name: "chat_server_injected_failures_total",
			Help: "Requests failed on purpose by FAIL_RATE.",
		}),
	}
}
