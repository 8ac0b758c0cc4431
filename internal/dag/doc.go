// Package dag provides the directed graph underneath a built pipeline. Nodes
// are stage names and an edge From -> To means To consumes a channel that
// From produces.
//
// The graph is mutable only until Freeze. Cycle detection is a depth-first
// search with recursion-stack marks kept in bitsets over the node arena.
package dag
