package builder

import (
	"sort"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/dag"
	"github.com/esteinig/pathfinder/internal/stage"
)

// SourceProducer is the producer name reported for the root source channel.
const SourceProducer = "<source>"

// Node is an active stage bound to its live channels.
type Node struct {
	Def *stage.Definition
	// Inputs is aligned with Def.Inputs; the index is the consumer port.
	Inputs []*channel.Channel
	// Outputs is aligned with Def.Outputs.
	Outputs []*channel.Channel
}

// Name returns the stage name.
func (n *Node) Name() string { return n.Def.Name }

// Graph is the frozen result of a build: the active stages, the DAG between
// them and the registry of live channels.
type Graph struct {
	source   *channel.Channel
	nodes    map[string]*Node
	dag      *dag.Graph
	channels *channel.Registry
	inactive []string
	elided   []string
}

// Source returns the root source channel.
func (g *Graph) Source() *channel.Channel { return g.source }

// Node returns the named active stage.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the active stages sorted by name.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, name := range g.Stages() {
		out = append(out, g.nodes[name])
	}
	return out
}

// Stages returns the active stage names, sorted.
func (g *Graph) Stages() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Edges returns the producer -> consumer edges between active stages.
func (g *Graph) Edges() []dag.Edge { return g.dag.Edges() }

// Order returns the active stages in dependency order.
func (g *Graph) Order() ([]string, error) { return g.dag.TopologicalOrder() }

// Channel returns a live channel by name.
func (g *Graph) Channel(name string) (*channel.Channel, bool) {
	return g.channels.Lookup(name)
}

// Channels returns every live channel name, sorted.
func (g *Graph) Channels() []string { return g.channels.Names() }

// Inactive returns the stages whose activation predicate was false.
func (g *Graph) Inactive() []string { return append([]string(nil), g.inactive...) }

// Elided returns the active stages removed because an input can never
// receive a tuple.
func (g *Graph) Elided() []string { return append([]string(nil), g.elided...) }

// Frozen reports whether the structure is sealed. It always is once Build
// returns successfully.
func (g *Graph) Frozen() bool { return g.dag.Frozen() }
