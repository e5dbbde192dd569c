package midi

import "container/heap"

type pendingOff struct {
	time Clock
	cmd  Command
	seq  int64
}

type offHeap []pendingOff

func (h offHeap) Len() int { return len(h) }

func (h offHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}

func (h offHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *offHeap) Push(x any) { *h = append(*h, x.(pendingOff)) }

func (h *offHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// OffQueue buffers note-offs until their time comes. Note-offs with equal
// times come out in the order they were pushed.
type OffQueue struct {
	h   offHeap
	seq int64
}

// Push schedules cmd at t.
func (q *OffQueue) Push(t Clock, cmd Command) {
	heap.Push(&q.h, pendingOff{time: t, cmd: cmd, seq: q.seq})
	q.seq++
}

// PushNote schedules the note-off of a paired event.
func (q *OffQueue) PushNote(e Event) {
	if e.Paired() {
		q.Push(e.OffTime, e.OffData)
	}
}

// Len returns the number of pending note-offs.
func (q *OffQueue) Len() int {
	return q.h.Len()
}

// Next returns the time of the earliest pending note-off.
func (q *OffQueue) Next() (Clock, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].time, true
}

// PopUntil removes every note-off due at or before t, in time order, and
// passes it to yield. It stops at the first error.
func (q *OffQueue) PopUntil(t Clock, yield func(Clock, Command) error) error {
	for q.h.Len() > 0 && q.h[0].time <= t {
		off := heap.Pop(&q.h).(pendingOff)
		if err := yield(off.time, off.cmd); err != nil {
			return err
		}
	}
	return nil
}

// Flush removes all pending note-offs in time order.
func (q *OffQueue) Flush(yield func(Clock, Command) error) error {
	for q.h.Len() > 0 {
		off := heap.Pop(&q.h).(pendingOff)
		if err := yield(off.time, off.cmd); err != nil {
			return err
		}
	}
	return nil
}
