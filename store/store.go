// store/store.go
package store

import (
	"sync"

	"fawtrap-go/types"
)

// Store is the fixed-capacity ring of Event records. Insertion always appends
// the logically-newest event; overflow evicts the logically-oldest regardless
// of its sent flag (availability over durability). IDs are assigned here,
// start at 1, strictly increase with insertion order and are never reused.
//
// Two logical roles touch the store: the capture orchestrator appends, the
// transfer engine reads and marks. Both normally run on the same cooperative
// loop; the mutex additionally keeps host-side tooling safe, and iteration
// hands out an ID snapshot so an append during an in-flight scan can never
// invalidate it.
type Store struct {
	mu     sync.Mutex
	events []types.Event // ring storage, len == capacity
	head   int           // index of logically-oldest live event
	n      int           // live count
	nextID uint32
	arena  *Arena
}

func New(capacity int, arena *Arena) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{
		events: make([]types.Event, capacity),
		nextID: 1,
		arena:  arena,
	}
}

// Arena exposes the payload arena the store frees into.
func (s *Store) Arena() *Arena { return s.arena }

// Append assigns the next monotonic ID, stores the event and returns the ID.
// O(1); never fails — eviction guarantees space.
func (s *Store) Append(ev types.Event) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.nextID
	s.nextID++

	if s.n == len(s.events) {
		s.freeArtifactsLocked(&s.events[s.head])
		s.head = (s.head + 1) % len(s.events)
		s.n--
	}
	s.events[(s.head+s.n)%len(s.events)] = ev
	s.n++
	return ev.ID
}

// Get looks an event up by its stable ID, not its slot position.
func (s *Store) Get(id uint32) (types.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.indexLocked(id); ok {
		return s.events[i], true
	}
	return types.Event{}, false
}

// UnsentIDs returns the IDs of unsent events in ascending order. The slice is
// a snapshot: a fresh call re-scans current state, and appends or evictions
// after the call cannot invalidate it — a consumer just sees a consistent
// prefix of history and checks Get for each ID.
func (s *Store) UnsentIDs() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint32
	for k := 0; k < s.n; k++ {
		ev := &s.events[(s.head+k)%len(s.events)]
		if !ev.Sent {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// SinceIDs returns IDs strictly greater than after, ascending, sent or not.
func (s *Store) SinceIDs(after uint32) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint32
	for k := 0; k < s.n; k++ {
		ev := &s.events[(s.head+k)%len(s.events)]
		if ev.ID > after {
			ids = append(ids, ev.ID)
		}
	}
	return ids
}

// MarkSent flags an event as delivered at least once. Idempotent; a no-op when
// the event was already evicted.
func (s *Store) MarkSent(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.indexLocked(id); ok {
		s.events[i].Sent = true
	}
}

// Clear drops every event and its payloads. Maintenance command only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.n = 0
	if s.arena != nil {
		s.arena.FreeAll()
	}
}

// Len reports the live event count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Unsent reports how many live events still await delivery.
func (s *Store) Unsent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := 0
	for k := 0; k < s.n; k++ {
		if !s.events[(s.head+k)%len(s.events)].Sent {
			c++
		}
	}
	return c
}

// LastID reports the most recently assigned ID (0 if none yet).
func (s *Store) LastID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID - 1
}

func (s *Store) indexLocked(id uint32) (int, bool) {
	// IDs are ordered around the ring; oldest is at head.
	if s.n == 0 {
		return 0, false
	}
	oldest := s.events[s.head].ID
	if id < oldest || id >= oldest+uint32(s.n) {
		return 0, false
	}
	return (s.head + int(id-oldest)) % len(s.events), true
}

func (s *Store) freeArtifactsLocked(ev *types.Event) {
	if s.arena == nil {
		return
	}
	s.arena.Free(ev.Image.Slot)
	s.arena.Free(ev.Audio.Slot)
}
