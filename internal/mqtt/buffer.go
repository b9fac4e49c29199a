package mqtt

import "log"

// queuedMsg stores a serialized MQTT message for replay after reconnection.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// replayQueue is a fixed-capacity FIFO holding messages that could not be
// delivered while the broker was unreachable. When full, the oldest message
// is dropped. Not safe for concurrent use; the publisher synchronizes.
type replayQueue struct {
	buf      []queuedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  bool // true if any message was dropped since last drain
}

func newReplayQueue(capacity int) *replayQueue {
	return &replayQueue{
		buf:      make([]queuedMsg, capacity),
		capacity: capacity,
	}
}

func (q *replayQueue) push(msg queuedMsg) {
	if q.count == q.capacity {
		if !q.dropped {
			log.Printf("mqtt: replay queue full (%d messages), dropping oldest", q.capacity)
			q.dropped = true
		}
		// head already points at the oldest entry
		q.buf[q.head] = msg
		q.head = (q.head + 1) % q.capacity
		return
	}
	q.buf[q.head] = msg
	q.head = (q.head + 1) % q.capacity
	q.count++
}

// drainAll returns the queued messages oldest-first and empties the queue.
func (q *replayQueue) drainAll() []queuedMsg {
	if q.count == 0 {
		return nil
	}

	out := make([]queuedMsg, q.count)
	start := (q.head - q.count + q.capacity) % q.capacity
	for i := 0; i < q.count; i++ {
		out[i] = q.buf[(start+i)%q.capacity]
	}

	q.count = 0
	q.head = 0
	q.dropped = false
	return out
}

func (q *replayQueue) len() int {
	return q.count
}
