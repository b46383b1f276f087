package reconcile

import (
	"errors"
	"log/slog"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

// Operation names a remote call.
type Operation string

const (
	OpListUsers    Operation = "ListUsers"
	OpListMessages Operation = "ListMessages"
	OpAddMessage   Operation = "AddMessage"
)

// Failure describes one failed remote call.
type Failure struct {
	Op    Operation
	Input remote.AddMessageInput
	// Attempt identifies the attempt; for AddMessage it is the id the
	// message was cached under when the call started.
	Attempt string
	Err     error
}

// Policy decides what a failed call does to the cache. Every failure is
// logged. A first-send AddMessage failure becomes a tombstone; everything
// else leaves the cache alone.
type Policy struct {
	log    *slog.Logger
	ledger *Ledger
}

// NewPolicy returns a policy that logs to log and records tombstones in
// ledger.
func NewPolicy(log *slog.Logger, ledger *Ledger) *Policy {
	return &Policy{log: log, ledger: ledger}
}

// Resolved tells the policy that the tombstone tombID was confirmed by a
// retry.
func (p *Policy) Resolved(tombID string) {
	p.ledger.Forget(tombID)
}

// Observe handles f. It reports the tombstone it created, if any.
func (p *Policy) Observe(f Failure) (cache.Message, bool) {
	attrs := []any{"op", string(f.Op), "attempt", f.Attempt, "error", f.Err}
	switch {
	case remote.IsApplication(f.Err):
		p.log.Warn("application error", attrs...)
	case remote.IsNetwork(f.Err):
		p.log.Warn("network error", attrs...)
	case errors.Is(f.Err, ErrInvalidRecord):
		p.log.Warn("invalid server record", attrs...)
	default:
		p.log.Warn("remote call failed", attrs...)
	}

	if f.Op != OpAddMessage || f.Input.IsRetry {
		return cache.Message{}, false
	}

	tomb, err := p.ledger.Record(f)
	if err != nil {
		p.log.Error("could not record failed message", "attempt", f.Attempt, "error", err)
		return cache.Message{}, false
	}
	return tomb, true
}
