package scheduler

import "sync"

// limiter bounds how many tasks of one resource label run at once. All of
// its state is guarded by a single mutex.
type limiter struct {
	name   string
	budget int
	ready  *readyQueue

	mu      sync.Mutex
	running int
	peak    int
	waiting []*task
}

func newLimiter(name string, budget int, ready *readyQueue) *limiter {
	return &limiter{name: name, budget: budget, ready: ready}
}

// admit hands the task to the workers if the label has room, otherwise
// queues it behind the tasks already waiting.
func (l *limiter) admit(t *task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running < l.budget {
		l.running++
		if l.running > l.peak {
			l.peak = l.running
		}
		l.ready.push(t)
		return
	}
	l.waiting = append(l.waiting, t)
}

// release frees the slot of a finished task. The slot passes directly to
// the oldest waiting task, if any.
func (l *limiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.waiting) > 0 {
		next := l.waiting[0]
		l.waiting[0] = nil
		l.waiting = l.waiting[1:]
		l.ready.push(next)
		return
	}
	l.running--
}

// stats returns the current and the highest observed number of running tasks.
func (l *limiter) stats() (running, peak int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running, l.peak
}
