package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/config"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

// Session is everything a chat UI talks to: the cache, its views, and the
// write path that keeps them in step with the server.
type Session struct {
	store  *cache.Store
	views  *cache.Views
	svc    remote.Service
	ledger *Ledger
	policy *Policy
	coord  *Coordinator
	opts   Options

	// closer is set when the session owns its connection.
	closer interface{ Close() error }
}

// NewSession builds a session over svc with an empty cache.
func NewSession(svc remote.Service, opts Options) *Session {
	opts = opts.withDefaults()
	store := cache.NewStore()
	ledger := NewLedger(store, opts.NewID, opts.Now)
	policy := NewPolicy(opts.Logger, ledger)
	return &Session{
		store:  store,
		views:  cache.NewViews(store),
		svc:    svc,
		ledger: ledger,
		policy: policy,
		coord:  NewCoordinator(store, svc, policy, opts),
		opts:   opts,
	}
}

// Dial connects to the chat server named by cfg and returns a session that
// owns the connection.
func Dial(cfg config.ClientConfig, opts Options, dialOpts ...grpc.DialOption) (*Session, error) {
	if cfg.RPCTimeout > 0 && opts.Timeout <= 0 {
		opts.Timeout = cfg.RPCTimeout
	}
	opts = opts.withDefaults()

	client, err := remote.Dial(cfg.RemoteAddr, opts.Logger, dialOpts...)
	if err != nil {
		return nil, err
	}
	s := NewSession(client, opts)
	s.closer = client
	return s, nil
}

// Load fetches users and then messages and merges them into the cache.
// Entries already cached keep their position, so calling Load again
// refreshes the session without disturbing pending or failed messages.
//
// Each list has its own fetch state: a failed fetch puts that view into an
// error state until a later Load succeeds. Both errors are returned.
func (s *Session) Load(ctx context.Context) error {
	usersErr := s.loadUsers(ctx)
	msgsErr := s.loadMessages(ctx)
	return errors.Join(usersErr, msgsErr)
}

func (s *Session) loadUsers(ctx context.Context) error {
	got, err := s.svc.ListUsers(ctx)
	if err != nil {
		err = fmt.Errorf("list users: %w", err)
		s.policy.Observe(Failure{Op: OpListUsers, Err: err})
		s.views.SetUsersFetch(nil, err)
		return err
	}

	users := make([]cache.User, 0, len(got))
	ids := make([]string, 0, len(got))
	for _, u := range got {
		if u.ID == "" {
			s.opts.Logger.Warn("skipping user without id")
			continue
		}
		users = append(users, cache.User(u))
		ids = append(ids, u.ID)
	}
	if err := s.store.UpsertAll(users, nil); err != nil {
		err = fmt.Errorf("cache users: %w", err)
		s.views.SetUsersFetch(nil, err)
		return err
	}
	s.views.SetUsersFetch(ids, nil)
	return nil
}

func (s *Session) loadMessages(ctx context.Context) error {
	got, err := s.svc.ListMessages(ctx)
	if err != nil {
		err = fmt.Errorf("list messages: %w", err)
		s.policy.Observe(Failure{Op: OpListMessages, Err: err})
		s.views.SetMessagesFetch(err)
		return err
	}

	msgs := make([]cache.Message, 0, len(got))
	for _, m := range got {
		if m.ID == "" || strings.HasPrefix(m.ID, cache.FailedPrefix) {
			s.opts.Logger.Warn("skipping invalid server message", "id", m.ID)
			continue
		}
		if m.CreatedBy.ID != "" {
			// users are immutable once cached; only fill gaps
			if _, err := s.store.EnsureUser(cache.User(m.CreatedBy)); err != nil {
				s.opts.Logger.Warn("skipping message author", "id", m.ID, "error", err)
			}
		}
		msgs = append(msgs, cache.Message{
			ID:        m.ID,
			Text:      m.Text,
			CreatedBy: m.CreatedBy.ID,
			CreatedAt: m.CreatedAt,
			State:     cache.StateConfirmed,
		})
	}
	if err := s.store.UpsertAll(nil, msgs); err != nil {
		err = fmt.Errorf("cache messages: %w", err)
		s.views.SetMessagesFetch(err)
		return err
	}
	s.views.SetMessagesFetch(nil)
	return nil
}

// Users returns the users view.
func (s *Session) Users() ([]cache.User, error) {
	return s.views.Users()
}

// Messages returns the messages view with authors resolved.
func (s *Session) Messages() ([]cache.MessageView, error) {
	return s.views.Messages()
}

// Submit posts text as author. See Coordinator.Submit.
func (s *Session) Submit(ctx context.Context, text string, author cache.User) (*Handle, error) {
	return s.coord.Submit(ctx, text, author)
}

// Retry sends a failed message again after confirm agrees. See
// Coordinator.Retry.
func (s *Session) Retry(ctx context.Context, m cache.Message, confirm Confirmer) (*Handle, error) {
	return s.coord.Retry(ctx, m, confirm)
}

// IsFailed reports whether m is a failure tombstone.
func (s *Session) IsFailed(m cache.Message) bool {
	return IsFailed(m)
}

// Watch subscribes to cache changes. See cache.Store.Watch.
func (s *Session) Watch() (int64, <-chan struct{}) {
	return s.store.Watch()
}

// Unwatch cancels a subscription made by Watch.
func (s *Session) Unwatch(id int64) {
	s.store.Unwatch(id)
}

// Store exposes the underlying cache.
func (s *Session) Store() *cache.Store {
	return s.store
}

// Close waits for in-flight submissions and retries to settle, then closes
// the connection if the session owns one. New submissions fail with
// ErrClosed once Close has been called.
func (s *Session) Close(ctx context.Context) error {
	err := s.coord.Close(ctx)
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
