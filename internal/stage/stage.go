// Package stage declares pipeline stages: what a stage consumes, what it
// produces, which resource label bounds it, and whether it exists at all
// for a given configuration.
package stage

import (
	"fmt"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
)

// Input references a channel by name, with an optional filter applied to
// every tuple before it reaches the stage.
type Input struct {
	Channel string
	Filter  channel.Predicate
}

// Output declares a channel the stage produces. Pattern tells file-based
// executors which work-directory files belong to the channel.
type Output struct {
	Channel string
	Pattern string
}

// Definition is a named processing unit. Definitions are plain data: the
// graph builder resolves the channel names and evaluates When exactly once.
type Definition struct {
	Name  string
	Label string

	Inputs  []Input
	Outputs []Output

	// Each, when non-nil, runs the stage once per (tuple, element) pair.
	Each []string

	// When decides whether the stage exists in the graph. Nil means always.
	When Activation

	MaxRetries uint64
	Env        map[string]string
	Publish    bool
}

// InputNames returns the names of the channels the stage consumes.
func (d *Definition) InputNames() []string {
	names := make([]string, len(d.Inputs))
	for i, in := range d.Inputs {
		names[i] = in.Channel
	}
	return names
}

// OutputNames returns the names of the channels the stage produces.
func (d *Definition) OutputNames() []string {
	names := make([]string, len(d.Outputs))
	for i, out := range d.Outputs {
		names[i] = out.Channel
	}
	return names
}

// Resolve evaluates the activation predicate against params.
func (d *Definition) Resolve(params *config.Params) (bool, error) {
	if d.When == nil {
		return true, nil
	}
	active, err := d.When.Active(params)
	if err != nil {
		return false, fmt.Errorf("stage %q activation: %w", d.Name, err)
	}
	return active, nil
}
