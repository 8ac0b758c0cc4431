package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/dag"
	"github.com/esteinig/pathfinder/internal/stage"
)

// Builder turns stage definitions into a frozen Graph for one set of
// parameters.
type Builder struct {
	params config.Params
	source string
}

// New creates a builder. The parameters are copied; the builder never reads
// ambient state.
func New(params *config.Params, source string) *Builder {
	return &Builder{params: *params, source: source}
}

// Build constructs a complete, validated graph from the definitions.
func (b *Builder) Build(ctx context.Context, defs []*stage.Definition) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "definitions", len(defs), "source", b.source)

	if b.source == "" {
		return nil, config.Errorf("source channel name must not be empty")
	}

	sorted, err := sortDefinitions(defs)
	if err != nil {
		return nil, err
	}

	// First pass: activation.
	active, inactive, err := b.partition(sorted)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Activation resolved.", "active", len(active), "inactive", inactive)

	// Second pass: producers.
	producers, err := b.resolveProducers(active)
	if err != nil {
		return nil, err
	}

	// Third pass: inputs.
	dead, err := b.resolveInputs(active, inactive, producers, sorted)
	if err != nil {
		return nil, err
	}

	// Fourth pass: elision of stages that can never fire.
	live, elided := elide(active, dead)
	if len(elided) > 0 {
		logger.Debug("Build: Elided stages fed only by inactive producers.", "elided", elided)
	}

	// Final pass: linking, validation and freezing.
	graph, err := b.link(live, producers)
	if err != nil {
		return nil, err
	}
	graph.inactive = inactive
	graph.elided = elided

	logger.Info("Graph construction successful.",
		"stages", len(graph.nodes),
		"edges", len(graph.Edges()),
		"inactive", len(inactive),
		"elided", len(elided),
	)
	return graph, nil
}

// sortDefinitions validates the structural shape of each definition and
// returns them sorted by name.
func sortDefinitions(defs []*stage.Definition) ([]*stage.Definition, error) {
	seen := make(map[string]struct{}, len(defs))
	sorted := make([]*stage.Definition, 0, len(defs))
	for _, d := range defs {
		if d == nil || d.Name == "" {
			return nil, config.Errorf("stage definition without a name")
		}
		if _, dup := seen[d.Name]; dup {
			return nil, config.Errorf("stage %q is declared more than once", d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.Inputs) == 0 {
			return nil, config.Errorf("stage %q declares no inputs", d.Name)
		}
		for _, in := range d.Inputs {
			if in.Channel == "" {
				return nil, config.Errorf("stage %q has an input without a channel name", d.Name)
			}
		}
		for _, out := range d.Outputs {
			if out.Channel == "" {
				return nil, config.Errorf("stage %q has an output without a channel name", d.Name)
			}
		}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted, nil
}

// partition evaluates every activation predicate exactly once.
func (b *Builder) partition(defs []*stage.Definition) ([]*stage.Definition, []string, error) {
	var active []*stage.Definition
	var inactive []string
	for _, d := range defs {
		on, err := d.Resolve(&b.params)
		if err != nil {
			if !errors.Is(err, config.ErrConfiguration) {
				err = fmt.Errorf("%w: %w", config.ErrConfiguration, err)
			}
			return nil, nil, err
		}
		if on {
			active = append(active, d)
		} else {
			inactive = append(inactive, d.Name)
		}
	}
	return active, inactive, nil
}

// resolveProducers maps every channel produced by an active stage, and the
// source, to its single producer.
func (b *Builder) resolveProducers(active []*stage.Definition) (map[string]string, error) {
	all := map[string][]string{b.source: {SourceProducer}}
	for _, d := range active {
		for _, name := range d.OutputNames() {
			if len(all[name]) > 0 && all[name][len(all[name])-1] == d.Name {
				continue // the same stage listing an output twice is one producer
			}
			all[name] = append(all[name], d.Name)
		}
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	producers := make(map[string]string, len(all))
	for _, name := range names {
		if len(all[name]) > 1 {
			return nil, &DuplicateProducerError{Channel: name, Producers: all[name]}
		}
		producers[name] = all[name][0]
	}
	return producers, nil
}

// resolveInputs checks every input of every active stage and returns the set
// of channels that are permanently empty.
func (b *Builder) resolveInputs(active []*stage.Definition, inactive []string, producers map[string]string, all []*stage.Definition) (map[string]bool, error) {
	isInactive := make(map[string]bool, len(inactive))
	for _, name := range inactive {
		isInactive[name] = true
	}
	dead := make(map[string]bool)
	for _, d := range all {
		if !isInactive[d.Name] {
			continue
		}
		for _, name := range d.OutputNames() {
			if _, live := producers[name]; !live {
				dead[name] = true
			}
		}
	}

	for _, d := range active {
		for _, name := range d.InputNames() {
			if _, ok := producers[name]; ok {
				continue
			}
			if dead[name] {
				continue
			}
			return nil, &UnresolvedChannelError{Stage: d.Name, Channel: name}
		}
	}
	return dead, nil
}

// elide removes, to a fixpoint, every stage with a permanently empty input.
func elide(active []*stage.Definition, dead map[string]bool) ([]*stage.Definition, []string) {
	live := active
	var elided []string
	for changed := true; changed; {
		changed = false
		next := live[:0:0]
		for _, d := range live {
			if hasDeadInput(d, dead) {
				elided = append(elided, d.Name)
				for _, name := range d.OutputNames() {
					dead[name] = true
				}
				changed = true
				continue
			}
			next = append(next, d)
		}
		live = next
	}
	sort.Strings(elided)
	return live, elided
}

func hasDeadInput(d *stage.Definition, dead map[string]bool) bool {
	for _, name := range d.InputNames() {
		if dead[name] {
			return true
		}
	}
	return false
}

// link creates the DAG and the channels of the live stages, validates the
// DAG and freezes both.
func (b *Builder) link(live []*stage.Definition, producers map[string]string) (*Graph, error) {
	g := dag.New()
	for _, d := range live {
		if err := g.AddNode(d.Name); err != nil {
			return nil, err
		}
	}

	for _, d := range live {
		for _, name := range d.InputNames() {
			producer := producers[name]
			if producer == SourceProducer {
				continue
			}
			if producer == d.Name {
				return nil, &CyclicGraphError{Path: []string{d.Name, d.Name}}
			}
			if err := g.AddEdge(producer, d.Name); err != nil {
				return nil, fmt.Errorf("linking %s -> %s: %w", producer, d.Name, err)
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CyclicGraphError{Path: cycleErr.Path}
		}
		return nil, fmt.Errorf("error validating stage graph: %w", err)
	}

	registry := channel.NewRegistry()
	source, err := registry.Declare(b.source, "")
	if err != nil {
		return nil, err
	}
	for _, d := range live {
		for _, name := range d.OutputNames() {
			if _, exists := registry.Lookup(name); exists {
				continue
			}
			if _, err := registry.Declare(name, d.Name); err != nil {
				return nil, err
			}
		}
	}

	nodes := make(map[string]*Node, len(live))
	for _, d := range live {
		n := &Node{Def: d}
		for _, name := range d.InputNames() {
			ch, _ := registry.Lookup(name)
			n.Inputs = append(n.Inputs, ch)
		}
		for _, name := range d.OutputNames() {
			ch, _ := registry.Lookup(name)
			n.Outputs = append(n.Outputs, ch)
		}
		nodes[d.Name] = n
	}

	g.Freeze()
	registry.Freeze()

	return &Graph{
		source:   source,
		nodes:    nodes,
		dag:      g,
		channels: registry,
	}, nil
}
