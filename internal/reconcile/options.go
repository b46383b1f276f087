// Package reconcile keeps a chat session's optimistic cache in step with the
// server. Messages appear in the cache the moment they are submitted, then
// settle into either the server's confirmed record or a failure tombstone
// that can be retried.
package reconcile

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
)

// DefaultTimeout bounds a single addMessage call.
const DefaultTimeout = 10 * time.Second

// Options tunes a Session. The zero value is usable.
type Options struct {
	// Timeout bounds each remote call made on behalf of a submission or a
	// retry.
	Timeout time.Duration
	Logger  *slog.Logger
	// Metrics may be nil, in which case unregistered collectors are used.
	Metrics *metrics.Cache

	// Now and NewID exist for tests.
	Now   func() time.Time
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NewCache(nil)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}
