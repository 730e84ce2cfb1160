// store/store_test.go
package store

import (
	"testing"

	"fawtrap-go/types"
)

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	s := New(10, nil)
	for i := 1; i <= 5; i++ {
		id := s.Append(types.Event{TS: int64(i)})
		if id != uint32(i) {
			t.Fatalf("append %d: id = %d", i, id)
		}
	}
	if s.Len() != 5 {
		t.Errorf("len = %d, want 5", s.Len())
	}
}

func TestOverflowEvictsStrictlyOldestFirst(t *testing.T) {
	const capN, k = 8, 5
	s := New(capN, nil)
	for i := 0; i < capN+k; i++ {
		s.Append(types.Event{})
	}
	if s.Len() != capN {
		t.Fatalf("len = %d, want %d", s.Len(), capN)
	}
	// Survivors are the k+1..end most recent: IDs k+1..cap+k.
	for id := uint32(1); id <= k; id++ {
		if _, ok := s.Get(id); ok {
			t.Errorf("id %d should have been evicted", id)
		}
	}
	for id := uint32(k + 1); id <= capN+k; id++ {
		if _, ok := s.Get(id); !ok {
			t.Errorf("id %d should be live", id)
		}
	}
}

func TestIDsNeverReusedAfterEviction(t *testing.T) {
	s := New(2, nil)
	for i := 0; i < 10; i++ {
		s.Append(types.Event{})
	}
	if id := s.Append(types.Event{}); id != 11 {
		t.Errorf("id after churn = %d, want 11", id)
	}
}

func TestMarkSentIdempotentAndIterationExcludes(t *testing.T) {
	s := New(10, nil)
	for i := 0; i < 4; i++ {
		s.Append(types.Event{})
	}

	s.MarkSent(2)
	s.MarkSent(2) // idempotent
	s.MarkSent(99) // evicted/unknown: no-op

	ids := s.UnsentIDs()
	want := []uint32{1, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("unsent = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unsent = %v, want %v", ids, want)
		}
	}
	if s.Unsent() != 3 {
		t.Errorf("unsent count = %d, want 3", s.Unsent())
	}

	// Cleared store yields nothing, and later events start fresh.
	s.Clear()
	if got := s.UnsentIDs(); len(got) != 0 {
		t.Errorf("unsent after clear = %v", got)
	}
	if id := s.Append(types.Event{}); id != 5 {
		t.Errorf("id after clear = %d, want 5", id)
	}
}

func TestAppendDuringIterationSnapshotStaysConsistent(t *testing.T) {
	s := New(4, nil)
	for i := 0; i < 4; i++ {
		s.Append(types.Event{})
	}

	ids := s.UnsentIDs()
	// Appends evict 1 and 2 mid-scan.
	s.Append(types.Event{})
	s.Append(types.Event{})

	// The snapshot itself is untouched; evicted entries simply miss on Get.
	live := 0
	for _, id := range ids {
		if _, ok := s.Get(id); ok {
			live++
		}
	}
	if live != 2 {
		t.Errorf("live from snapshot = %d, want 2", live)
	}
}

func TestSinceIDs(t *testing.T) {
	s := New(10, nil)
	for i := 0; i < 6; i++ {
		s.Append(types.Event{})
	}
	s.MarkSent(5)

	ids := s.SinceIDs(4)
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 6 {
		t.Errorf("since(4) = %v, want [5 6]", ids)
	}
}

func TestEvictionFreesArenaSlots(t *testing.T) {
	a := NewArena(1024)
	s := New(2, a)

	slot1, _, ok := a.Alloc(100)
	if !ok {
		t.Fatal("alloc failed")
	}
	s.Append(types.Event{Image: types.ArtifactRef{Kind: types.ArtifactImage, Slot: slot1, Size: 100}})
	s.Append(types.Event{})
	if a.Used() != 100 {
		t.Fatalf("arena used = %d, want 100", a.Used())
	}

	// Third append evicts event 1 and frees its payload.
	s.Append(types.Event{})
	if a.Used() != 0 {
		t.Errorf("arena used after eviction = %d, want 0", a.Used())
	}
}

func TestArenaBudget(t *testing.T) {
	a := NewArena(256)

	s1, buf, ok := a.Alloc(200)
	if !ok || len(buf) != 200 {
		t.Fatal("first alloc should fit")
	}
	if _, _, ok := a.Alloc(100); ok {
		t.Fatal("over-budget alloc should fail")
	}
	a.Free(s1)
	a.Free(s1) // idempotent
	if _, _, ok := a.Alloc(100); !ok {
		t.Fatal("alloc after free should fit")
	}

	if got := a.Bytes(s1); got != nil {
		t.Errorf("freed slot still readable: %v", got)
	}
}
