/*
Package builder is responsible for the architectural construction of the
pipeline graph. It acts as the bridge between the declared stages (the
'stage' package) and the dataflow scheduler (the 'scheduler' package).

The primary artifact produced by this package is a validated, frozen *Graph.

The graph construction is a multi-phase process:

 1. Activation: every stage's activation predicate is evaluated once against
    the run's parameters. Inactive stages never become nodes.

 2. Producer Resolution: every output channel name is mapped to its producer.
    The root source counts as a producer. Two active producers of one name
    are a *DuplicateProducerError.

 3. Input Resolution: every input of every active stage is resolved through
    the producer table, independent of declaration order. A name nobody
    produces is an *UnresolvedChannelError. A name produced only by inactive
    stages is permanently empty.

 4. Elision: stages with a permanently empty input can never fire, so they
    are elided too, repeatedly, until nothing changes.

 5. Linking and Validation: producer -> consumer edges are added to a 'dag'
    graph, cycles are rejected with a *CyclicGraphError, channels are declared
    in a registry, and both are frozen.

Every phase iterates stage names in sorted order, so the same definitions and
parameters always produce the same nodes and edges.
*/
package builder
