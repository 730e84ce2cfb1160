// store/arena.go
package store

import (
	"sync"

	"fawtrap-go/types"
)

// Arena holds capture payloads under a fixed byte budget. Events carry slot
// handles instead of the bytes themselves, so evicting a ring entry frees its
// payloads in O(1) without touching the Event record layout.
type Arena struct {
	mu    sync.Mutex
	cap   int
	used  int
	slots map[types.Slot][]byte
	next  types.Slot
}

func NewArena(capBytes int) *Arena {
	if capBytes <= 0 {
		capBytes = 64 * 1024
	}
	return &Arena{
		cap:   capBytes,
		slots: map[types.Slot][]byte{},
		next:  1, // 0 is NoSlot
	}
}

// Alloc reserves n bytes and returns the slot handle plus the backing buffer
// for the capture driver to fill. Returns ok=false when the budget cannot
// cover n; the caller records the capture as failed and carries on.
func (a *Arena) Alloc(n int) (types.Slot, []byte, bool) {
	if n <= 0 {
		return types.NoSlot, nil, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.used+n > a.cap {
		return types.NoSlot, nil, false
	}
	s := a.next
	a.next++
	if a.next == types.NoSlot {
		a.next++
	}
	buf := make([]byte, n)
	a.slots[s] = buf
	a.used += n
	return s, buf, true
}

// Bytes returns the payload for a slot, or nil if it was freed.
func (a *Arena) Bytes(s types.Slot) []byte {
	if s == types.NoSlot {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.slots[s]
}

// Free releases a slot. Idempotent; freeing NoSlot is a no-op.
func (a *Arena) Free(s types.Slot) {
	if s == types.NoSlot {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if buf, ok := a.slots[s]; ok {
		a.used -= len(buf)
		delete(a.slots, s)
	}
}

// FreeAll drops every payload (store clear).
func (a *Arena) FreeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.slots = map[types.Slot][]byte{}
	a.used = 0
}

func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

func (a *Arena) Cap() int { return a.cap }
