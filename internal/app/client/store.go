package client

import (
	gosync "sync"

	"campsync/internal/domain/campaign"
)

// StoreOp labels a store mutation in change notifications.
type StoreOp string

const (
	StoreOpReplace StoreOp = "replace"
	StoreOpUpsert  StoreOp = "upsert"
	StoreOpRemove  StoreOp = "remove"
)

// StoreEvent announces one store mutation. Components that need a "saved"
// indicator subscribe to these instead of intercepting the storage layer.
type StoreEvent struct {
	Op       StoreOp
	EntityID string
}

// Store is the single place application code reads entity collections from.
// Every mutation rebuilds the snapshot slice, so a consumer comparing the
// value returned by All against a previously held one observes a new
// reference per change; entities themselves are copied on the way in and
// never mutated in place.
type Store struct {
	mu       gosync.RWMutex
	entities map[string]campaign.Entity
	order    []string
	snapshot []campaign.Entity
	subs     map[int]chan StoreEvent
	nextSub  int
}

func NewStore() *Store {
	return &Store{
		entities: make(map[string]campaign.Entity),
		snapshot: []campaign.Entity{},
		subs:     make(map[int]chan StoreEvent),
	}
}

// ReplaceAll swaps the whole snapshot, e.g. after batch hydration.
func (s *Store) ReplaceAll(entities []campaign.Entity) {
	s.mu.Lock()
	s.entities = make(map[string]campaign.Entity, len(entities))
	s.order = s.order[:0]
	for _, e := range entities {
		if _, seen := s.entities[e.ID]; !seen {
			s.order = append(s.order, e.ID)
		}
		s.entities[e.ID] = e.Clone()
	}
	s.rebuild()
	s.mu.Unlock()

	s.publish(StoreEvent{Op: StoreOpReplace})
}

// Upsert inserts or replaces one entity. New entities are prepended so the
// most recently arrived one lists first.
func (s *Store) Upsert(e campaign.Entity) {
	s.mu.Lock()
	if _, exists := s.entities[e.ID]; !exists {
		s.order = append([]string{e.ID}, s.order...)
	}
	s.entities[e.ID] = e.Clone()
	s.rebuild()
	s.mu.Unlock()

	s.publish(StoreEvent{Op: StoreOpUpsert, EntityID: e.ID})
}

// Remove drops an entity by id; removing an unknown id is a no-op and emits
// no event.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	if _, exists := s.entities[id]; !exists {
		s.mu.Unlock()
		return
	}
	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rebuild()
	s.mu.Unlock()

	s.publish(StoreEvent{Op: StoreOpRemove, EntityID: id})
}

// Get returns a copy of the entity with the given id.
func (s *Store) Get(id string) (campaign.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return campaign.Entity{}, false
	}
	return e.Clone(), true
}

// All returns the current snapshot. The slice is only replaced by
// mutations, never appended to, so callers may hold it and compare
// references to detect change.
func (s *Store) All() []campaign.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Len returns the number of entities held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Subscribe returns a channel of store mutations and an unsubscribe
// function. Slow consumers drop events rather than block mutations.
func (s *Store) Subscribe() (<-chan StoreEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan StoreEvent, 16)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// rebuild recomputes the snapshot; callers hold the write lock.
func (s *Store) rebuild() {
	snap := make([]campaign.Entity, 0, len(s.order))
	for _, id := range s.order {
		snap = append(snap, s.entities[id])
	}
	s.snapshot = snap
}

func (s *Store) publish(ev StoreEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
