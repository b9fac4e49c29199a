package mqtt

import (
	"fmt"
	"testing"
)

func msgN(n int) queuedMsg {
	return queuedMsg{topic: Topic, payload: []byte(fmt.Sprintf("msg-%d", n))}
}

func TestReplayQueueFIFO(t *testing.T) {
	q := newReplayQueue(4)

	for i := 0; i < 3; i++ {
		q.push(msgN(i))
	}
	if q.len() != 3 {
		t.Fatalf("len = %d, want 3", q.len())
	}

	out := q.drainAll()
	if len(out) != 3 {
		t.Fatalf("drained %d, want 3", len(out))
	}
	for i, m := range out {
		if string(m.payload) != fmt.Sprintf("msg-%d", i) {
			t.Errorf("out[%d] = %s, not FIFO", i, m.payload)
		}
	}
	if q.len() != 0 {
		t.Error("queue not emptied by drain")
	}
}

func TestReplayQueueDropsOldestWhenFull(t *testing.T) {
	q := newReplayQueue(3)

	for i := 0; i < 5; i++ {
		q.push(msgN(i))
	}
	if q.len() != 3 {
		t.Fatalf("len = %d, want capacity 3", q.len())
	}

	out := q.drainAll()
	// Oldest two (0, 1) were dropped.
	want := []string{"msg-2", "msg-3", "msg-4"}
	for i, m := range out {
		if string(m.payload) != want[i] {
			t.Errorf("out[%d] = %s, want %s", i, m.payload, want[i])
		}
	}
}

func TestReplayQueueEmptyDrain(t *testing.T) {
	q := newReplayQueue(2)
	if out := q.drainAll(); out != nil {
		t.Errorf("drain of empty queue = %v, want nil", out)
	}
}

func TestReplayQueueReuseAfterDrain(t *testing.T) {
	q := newReplayQueue(2)
	q.push(msgN(0))
	q.drainAll()

	q.push(msgN(1))
	out := q.drainAll()
	if len(out) != 1 || string(out[0].payload) != "msg-1" {
		t.Errorf("unexpected contents after reuse: %v", out)
	}
}
