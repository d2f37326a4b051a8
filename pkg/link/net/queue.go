package net

import (
	"sync"
	"time"
)

// Queue is the outbound FIFO between application producers and the single
// sender goroutine. Depth is unbounded: a long disconnection with producers
// still enqueueing grows it without limit.
type Queue struct {
	mu      sync.Mutex
	buffers [][]byte
	closed  bool

	wake chan struct{} // 1-slot; a pending token means "look again"
	done chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Enqueue appends buf at the tail and never blocks. The queue takes
// ownership of buf. Empty buffers are ignored.
func (q *Queue) Enqueue(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.buffers = append(q.buffers, buf)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue waits up to timeout for the head buffer. It returns false on
// timeout or once the queue is closed.
func (q *Queue) Dequeue(timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		if len(q.buffers) > 0 {
			buf := q.buffers[0]
			q.buffers[0] = nil
			q.buffers = q.buffers[1:]
			q.mu.Unlock()
			return buf, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.done:
			return nil, false
		case <-timer.C:
			return nil, false
		}
	}
}

// Close discards everything still queued and releases a waiting consumer.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.buffers = nil
	close(q.done)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffers)
}
