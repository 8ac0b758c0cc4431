package builder

import (
	"fmt"
	"strings"

	"github.com/esteinig/pathfinder/internal/config"
)

// UnresolvedChannelError reports an input no stage and no source produces.
type UnresolvedChannelError struct {
	Stage   string
	Channel string
}

func (e *UnresolvedChannelError) Error() string {
	return fmt.Sprintf("stage %q consumes channel %q, which nothing produces", e.Stage, e.Channel)
}

func (e *UnresolvedChannelError) Unwrap() error { return config.ErrConfiguration }

// DuplicateProducerError reports a channel with more than one active producer.
type DuplicateProducerError struct {
	Channel   string
	Producers []string
}

func (e *DuplicateProducerError) Error() string {
	return fmt.Sprintf("channel %q has more than one producer: %s", e.Channel, strings.Join(e.Producers, ", "))
}

func (e *DuplicateProducerError) Unwrap() error { return config.ErrConfiguration }

// CyclicGraphError reports a cycle between active stages.
type CyclicGraphError struct {
	Path []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("stage graph is cyclic: %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicGraphError) Unwrap() error { return config.ErrConfiguration }
