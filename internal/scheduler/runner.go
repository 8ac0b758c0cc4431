package scheduler

import (
	"sort"
	"sync"

	"github.com/esteinig/pathfinder/internal/builder"
	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/taskstore"
)

// task is one Ready instance of a stage.
type task struct {
	id     taskstore.TaskID
	runner *runner
	// files are the files of every input port, in port order.
	files []channel.FileRef
}

// join collects the deliveries for one correlation key, FIFO per port.
type join struct {
	lineage string
	param   string
	ports   [][]channel.Tuple
}

// lineageJoins tracks the plain (param-less) tuples of one lineage. The
// first plain tuple of a port also stands in for that port in every
// cross-product join of the lineage.
type lineageJoins struct {
	plain []*channel.Tuple
	// broadcast is set once a plain tuple completed a cross-product join.
	broadcast bool
}

// runner is the consumer of every input channel of one stage.
type runner struct {
	s       *Scheduler
	node    *builder.Node
	limiter *limiter
	subs    []*channel.Subscription

	mu       sync.Mutex
	joins    map[string]*join
	lineages map[string]*lineageJoins
}

func newRunner(s *Scheduler, node *builder.Node, l *limiter) *runner {
	return &runner{
		s:        s,
		node:     node,
		limiter:  l,
		joins:    make(map[string]*join),
		lineages: make(map[string]*lineageJoins),
	}
}

// Deliver implements channel.Consumer.
func (r *runner) Deliver(port int, t channel.Tuple) {
	for _, ready := range r.correlate(port, t) {
		r.s.submit(ready)
	}
}

// correlate records the delivery and returns the tasks it completes. Ports
// join on Tuple.Key; a plain tuple additionally joins every cross-product
// element of its lineage that arrives on the other ports.
func (r *runner) correlate(port int, t channel.Tuple) []*task {
	n := len(r.node.Inputs)
	if n == 1 {
		id := taskstore.TaskID{Stage: r.node.Name(), Lineage: t.ID, Param: t.Param}
		return []*task{{id: id, runner: r, files: t.Files()}}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lj, ok := r.lineages[t.ID]
	if !ok {
		lj = &lineageJoins{plain: make([]*channel.Tuple, n)}
		r.lineages[t.ID] = lj
	}

	key := t.Key()
	j, ok := r.joins[key]
	if !ok {
		j = &join{lineage: t.ID, param: t.Param, ports: make([][]channel.Tuple, n)}
		r.joins[key] = j
	}
	j.ports[port] = append(j.ports[port], t)

	var ready []*task
	if t.Param != "" {
		ready = r.fire(j, lj)
	} else {
		if lj.plain[port] == nil {
			plain := t
			lj.plain[port] = &plain
		}
		ready = r.fire(j, lj)
		keys := make([]string, 0, len(r.joins))
		for k, other := range r.joins {
			if other.lineage == t.ID && other.param != "" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			ready = append(ready, r.fire(r.joins[k], lj)...)
		}
	}

	plainID := taskstore.TaskID{Stage: r.node.Name(), Lineage: t.ID}
	if lj.broadcast {
		if _, open := r.joins[t.ID]; open && r.s.store.Status(r.s.runCtx, plainID) == taskstore.Pending {
			r.s.store.Forget(r.s.runCtx, plainID)
		}
	}
	return ready
}

// fire drains every complete set of j. Cross-product joins fall back to the
// lineage's plain tuple for ports without a delivery of their own. An
// incomplete join leaves its task Pending.
func (r *runner) fire(j *join, lj *lineageJoins) []*task {
	id := taskstore.TaskID{Stage: r.node.Name(), Lineage: j.lineage, Param: j.param}
	var ready []*task
	for {
		var files []channel.FileRef
		complete, borrowed, consumed := true, false, false
		for i, queued := range j.ports {
			switch {
			case len(queued) > 0:
				files = append(files, queued[0].Files()...)
				consumed = true
			case j.param != "" && lj.plain[i] != nil:
				files = append(files, lj.plain[i].Files()...)
				borrowed = true
			default:
				complete = false
			}
		}
		if !complete || !consumed {
			break
		}

		drained := true
		for i := range j.ports {
			if len(j.ports[i]) > 0 {
				j.ports[i] = j.ports[i][1:]
			}
			if len(j.ports[i]) > 0 {
				drained = false
			}
		}
		if borrowed {
			lj.broadcast = true
		}
		ready = append(ready, &task{id: id, runner: r, files: files})
		if drained {
			delete(r.joins, j.lineage+keySuffix(j.param))
			return ready
		}
	}

	if len(ready) == 0 && !(j.param == "" && lj.broadcast) {
		r.s.store.SetStatus(r.s.runCtx, id, taskstore.Pending)
	}
	return ready
}

func keySuffix(param string) string {
	if param == "" {
		return ""
	}
	return "#" + param
}

func (r *runner) onReject(_ *channel.Subscription, t channel.Tuple) {
	r.s.recordRejection(r.node.Name(), t)
}

// rejected sums the filter rejections of every input subscription.
func (r *runner) rejected() int64 {
	var n int64
	for _, sub := range r.subs {
		n += sub.Rejected()
	}
	return n
}
