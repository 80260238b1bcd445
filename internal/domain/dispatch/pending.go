package dispatch

import "github.com/okian/fightlog/internal/domain/event"

type pendingEvent struct {
	ev  event.Event
	seq uint64
}

// pendingQueue is a container/heap min-heap keyed by (timestamp, seq).
type pendingQueue []pendingEvent

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	if q[i].ev.Timestamp != q[j].ev.Timestamp {
		return q[i].ev.Timestamp < q[j].ev.Timestamp
	}
	return q[i].seq < q[j].seq
}

func (q pendingQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pendingQueue) Push(x any) { *q = append(*q, x.(pendingEvent)) }

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q pendingQueue) peek() (event.Event, bool) {
	if len(q) == 0 {
		return event.Event{}, false
	}
	return q[0].ev, true
}
