package scheduler

import "sync"

// readyQueue is the unbounded FIFO between the label limiters and the
// worker pool. Push never blocks, so it is safe to call while a channel
// delivers.
type readyQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*task
	closed bool
}

func newReadyQueue() *readyQueue {
	q := &readyQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *readyQueue) push(t *task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, t)
	q.cond.Signal()
}

// pop blocks until a task is available. It returns false once the queue is
// closed and drained.
func (q *readyQueue) pop() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true
}

func (q *readyQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
