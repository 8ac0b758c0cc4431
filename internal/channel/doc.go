// Package channel implements the streams that connect pipeline stages.
//
// A Channel is append-only and unbounded. Every emitted Tuple is offered to
// each Subscription independently: a subscription has its own Predicate, its
// own optional each-list (static cross-product) and its own delivery order.
// Fan-out shares the tuple value; files are never copied.
//
// Predicates are typed values (MinFileSize, MinFiles, All) rather than
// closures, so a workflow file can declare them and a report can print them.
// Tuples a predicate drops are counted on the subscription and passed to an
// optional OnReject hook. They are a filtering decision, not an error.
package channel
