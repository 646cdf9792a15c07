package workqueue

import "testing"

func TestSet_Queue_Independent(t *testing.T) {
	s := NewSet[int](3)

	s.Queue(0).Push(10)
	s.Queue(2).Push(20)

	if got := s.Queue(0).Len(); got != 1 {
		t.Errorf("queue 0 Len() = %d, want 1", got)
	}
	if got := s.Queue(1).Len(); got != 0 {
		t.Errorf("queue 1 Len() = %d, want 0", got)
	}
	if s.Size() != 3 {
		t.Errorf("Size() = %d, want 3", s.Size())
	}
}

func TestSet_Steal_SkipsThief(t *testing.T) {
	s := NewSet[int](2)
	s.Queue(1).Push(7)

	// Worker 1 must not steal from itself even though it has work.
	if _, ok := s.Steal(1); ok {
		t.Error("Steal(1) = true with work only in the thief's own queue")
	}
	if v, ok := s.Steal(0); !ok || v != 7 {
		t.Errorf("Steal(0) = (%d,%v), want (7,true)", v, ok)
	}
}

func TestSet_Steal_ScansAllPeers(t *testing.T) {
	s := NewSet[int](4)
	// Work only in the queue farthest from the thief's scan start.
	s.Queue(0).Push(99)

	if v, ok := s.Steal(1); !ok || v != 99 {
		t.Errorf("Steal(1) = (%d,%v), want (99,true) from the last scanned peer", v, ok)
	}
}

func TestSet_Steal_SingleWorker(t *testing.T) {
	s := NewSet[int](1)
	s.Queue(0).Push(1)

	// One worker has no peers; stealing can never succeed.
	if _, ok := s.Steal(0); ok {
		t.Error("Steal with a single worker = true, want false")
	}
}

func TestSet_HasWork(t *testing.T) {
	s := NewSet[int](3)

	if s.HasWork() {
		t.Error("HasWork() = true on empty set")
	}
	s.Queue(2).Push(1)
	if !s.HasWork() {
		t.Error("HasWork() = false with a queued task")
	}
	s.Queue(2).PopLocal()
	if s.HasWork() {
		t.Error("HasWork() = true after draining")
	}
}
