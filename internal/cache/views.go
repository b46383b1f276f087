package cache

import (
	"errors"
	"slices"
	"sync"
)

// ErrNotLoaded is returned by a view whose initial fetch has not completed.
var ErrNotLoaded = errors.New("cache: view not loaded")

// fetchState records how the initial fetch behind a view ended.
type fetchState struct {
	loaded bool
	err    error
}

func (f fetchState) check() error {
	if f.err != nil {
		return f.err
	}
	if !f.loaded {
		return ErrNotLoaded
	}
	return nil
}

// Views derives the "all users" and "all messages" projections from a Store.
// Results are rebuilt only when the store version moves.
type Views struct {
	store *Store

	mu            sync.Mutex
	usersFetch    fetchState
	messagesFetch fetchState

	// ids returned by the users fetch, in fetch order. Authors cached only
	// to resolve messages are not listed.
	roster []string

	usersVersion    uint64
	usersMemo       []User
	messagesVersion uint64
	messagesMemo    []MessageView
}

// NewViews returns views over store. Both start in the not-loaded state.
func NewViews(store *Store) *Views {
	return &Views{store: store}
}

// SetUsersFetch records the outcome of fetching users. ids are the fetched
// user ids in fetch order; ids already listed keep their position and new
// ones are appended. A non-nil err puts the users view in its error state
// until a later fetch succeeds.
func (v *Views) SetUsersFetch(ids []string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.usersFetch = fetchState{loaded: err == nil, err: err}
	v.usersMemo = nil
	if err != nil {
		return
	}
	listed := make(map[string]bool, len(v.roster))
	for _, id := range v.roster {
		listed[id] = true
	}
	for _, id := range ids {
		if !listed[id] {
			listed[id] = true
			v.roster = append(v.roster, id)
		}
	}
}

// SetMessagesFetch records the outcome of fetching messages.
func (v *Views) SetMessagesFetch(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messagesFetch = fetchState{loaded: err == nil, err: err}
	v.messagesMemo = nil
}

// Users returns all users in fetch order, or the fetch error. A view in its
// error state never returns partial data.
func (v *Views) Users() ([]User, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.usersFetch.check(); err != nil {
		return nil, err
	}

	version := v.store.Version()
	if v.usersMemo == nil || v.usersVersion != version {
		snap := v.store.Snapshot()
		v.usersMemo = listRoster(v.roster, snap.Users)
		v.usersVersion = snap.Version
	}
	return slices.Clone(v.usersMemo), nil
}

// Messages returns all messages, pending, confirmed and failed, in store
// order with their authors resolved.
func (v *Views) Messages() ([]MessageView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.messagesFetch.check(); err != nil {
		return nil, err
	}

	version := v.store.Version()
	if v.messagesMemo == nil || v.messagesVersion != version {
		snap := v.store.Snapshot()
		v.messagesMemo = resolveAuthors(snap)
		v.messagesVersion = snap.Version
	}
	return slices.Clone(v.messagesMemo), nil
}

func listRoster(roster []string, users []User) []User {
	byID := make(map[string]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]User, 0, len(roster))
	for _, id := range roster {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out
}

func resolveAuthors(snap Snapshot) []MessageView {
	byID := make(map[string]User, len(snap.Users))
	for _, u := range snap.Users {
		byID[u.ID] = u
	}

	out := make([]MessageView, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		author, ok := byID[m.CreatedBy]
		if !ok {
			author = User{ID: m.CreatedBy}
		}
		out = append(out, MessageView{Message: m, Author: author})
	}
	return out
}
