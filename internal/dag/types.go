package dag

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrFrozen is returned by structural mutations after Freeze.
	ErrFrozen = errors.New("graph is frozen")
	// ErrSelfEdge is returned when an edge would connect a node to itself.
	ErrSelfEdge = errors.New("self-referential edge not allowed")
)

// CycleError reports a cycle as the path of node IDs that closes it. The
// first and last elements are the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Edge is a directed edge From -> To, meaning To depends on From.
type Edge struct {
	From string
	To   string
}

// Graph is a collection of nodes and their dependencies, representing a DAG.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the node arena during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// arena stores the same nodes by insertion index.
	arena []*node
	// frozen forbids further structural mutation.
	frozen bool
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// index is the node's position in the arena.
	index uint
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}
