package cache

// table keeps entities keyed by id in insertion order. It is not safe for
// concurrent use; Store guards every table with its own lock.
type table[T any] struct {
	keys  []string
	items map[string]T
	pos   map[string]int
}

func newTable[T any]() *table[T] {
	return &table[T]{
		items: make(map[string]T),
		pos:   make(map[string]int),
	}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.items[id]
	return v, ok
}

func (t *table[T]) has(id string) bool {
	_, ok := t.pos[id]
	return ok
}

func (t *table[T]) len() int { return len(t.keys) }

// list returns the entities in position order.
func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, t.items[k])
	}
	return out
}

// upsert overwrites an existing entry in place or appends a new one.
func (t *table[T]) upsert(id string, v T) {
	if _, ok := t.pos[id]; !ok {
		t.pos[id] = len(t.keys)
		t.keys = append(t.keys, id)
	}
	t.items[id] = v
}

// rename moves the entry at oldID to newID without changing its position.
// When newID already occupies another slot, that slot is dropped and v takes
// oldID's position, so no key ever appears twice.
func (t *table[T]) rename(oldID, newID string, v T) error {
	if _, ok := t.pos[oldID]; !ok {
		return ErrNotFound
	}
	if oldID == newID {
		t.items[newID] = v
		return nil
	}
	if t.has(newID) {
		t.remove(newID)
	}

	i := t.pos[oldID]
	t.keys[i] = newID
	delete(t.pos, oldID)
	delete(t.items, oldID)
	t.pos[newID] = i
	t.items[newID] = v
	return nil
}

func (t *table[T]) remove(id string) {
	i, ok := t.pos[id]
	if !ok {
		return
	}
	t.keys = append(t.keys[:i], t.keys[i+1:]...)
	delete(t.pos, id)
	delete(t.items, id)
	for j := i; j < len(t.keys); j++ {
		t.pos[t.keys[j]] = j
	}
}
