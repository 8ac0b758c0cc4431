// Package scheduler executes a built stage graph as a dataflow.
//
// # How It Works
//
// New subscribes one runner per active stage to each of the stage's input
// channels. Run then emits the root tuples on the source channel and lets
// the data drive everything else:
//
//  1. A channel delivers every accepted tuple to the runners subscribed to
//     it, synchronously and in emission order.
//  2. A runner correlates deliveries by lineage id and cross-product
//     element. Once every input port holds a tuple for the same key, a
//     Ready task is created with the port files concatenated in port order.
//     A plain tuple also fills its port for every cross-product element of
//     its lineage.
//  3. The task's label limiter admits it while fewer than the label's
//     budget are running, otherwise queues it FIFO.
//  4. A fixed pool of workers executes admitted tasks. On success the
//     outputs are published and one tuple per output channel is emitted,
//     which repeats the cycle downstream. On failure nothing is emitted, so
//     only the failed lineage's subtree stops.
//
// Run returns once every task it created has completed or failed.
//
// # Locking
//
// Delivery happens under the emitting channel's lock. The locks nest in a
// single order, channel, runner join, label limiter, ready queue, and none
// is held while a task executes.
package scheduler
