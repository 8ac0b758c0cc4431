package builder

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/dag"
	"github.com/esteinig/pathfinder/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// def is a compact constructor for test definitions.
func def(name string, inputs []string, outputs []string, when stage.Activation) *stage.Definition {
	d := &stage.Definition{Name: name, Label: "default", When: when}
	for _, in := range inputs {
		d.Inputs = append(d.Inputs, stage.Input{Channel: in})
	}
	for _, out := range outputs {
		d.Outputs = append(d.Outputs, stage.Output{Channel: out})
	}
	return d
}

// settings builds an activation reading a named toggle from a fixed map.
func settings(flags map[string]bool, name string) stage.Activation {
	return stage.ActivationFunc(func(*config.Params) (bool, error) {
		return flags[name], nil
	})
}

func build(t *testing.T, defs ...*stage.Definition) (*Graph, error) {
	t.Helper()
	params := config.DefaultParams()
	return New(&params, "reads").Build(context.Background(), defs)
}

func surveyDefs(flags map[string]bool) []*stage.Definition {
	return []*stage.Definition{
		def("Type", []string{"assembly"}, []string{"types"}, nil),
		def("Trim", []string{"reads"}, []string{"trimmed"}, nil),
		def("Assemble", []string{"trimmed"}, []string{"assembly"}, nil),
		def("Classify", []string{"trimmed"}, []string{"kraken"}, nil),
		def("Typing", []string{"assembly"}, []string{"typing"}, settings(flags, "enableTyping")),
		def("TypingReport", []string{"typing"}, nil, nil),
		def("Combined", []string{"assembly", "typing"}, []string{"combined"}, nil),
	}
}

func TestBuild_LinksStagesByChannelName(t *testing.T) {
	g, err := build(t, surveyDefs(map[string]bool{"enableTyping": true})...)
	require.NoError(t, err)

	assert.Equal(t, []string{"Assemble", "Classify", "Combined", "Trim", "Type", "Typing", "TypingReport"}, g.Stages())
	assert.Equal(t, []dag.Edge{
		{From: "Assemble", To: "Combined"},
		{From: "Assemble", To: "Type"},
		{From: "Assemble", To: "Typing"},
		{From: "Trim", To: "Assemble"},
		{From: "Trim", To: "Classify"},
		{From: "Typing", To: "Combined"},
		{From: "Typing", To: "TypingReport"},
	}, g.Edges())
	assert.True(t, g.Frozen())

	combined, ok := g.Node("Combined")
	require.True(t, ok)
	require.Len(t, combined.Inputs, 2)
	assert.Equal(t, "assembly", combined.Inputs[0].Name())
	assert.Equal(t, "typing", combined.Inputs[1].Name())

	assert.Equal(t, "reads", g.Source().Name())
	assert.Empty(t, g.Source().Producer())
}

func TestBuild_DeterministicAcrossDeclarationOrder(t *testing.T) {
	flags := map[string]bool{"enableTyping": true}
	reference, err := build(t, surveyDefs(flags)...)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		defs := surveyDefs(flags)
		rng.Shuffle(len(defs), func(a, b int) { defs[a], defs[b] = defs[b], defs[a] })

		g, err := build(t, defs...)
		require.NoError(t, err)
		assert.Equal(t, reference.Stages(), g.Stages())
		assert.Equal(t, reference.Edges(), g.Edges())
		assert.Equal(t, reference.Channels(), g.Channels())
	}
}

func TestBuild_InactiveStageIsElidedWithItsDependents(t *testing.T) {
	g, err := build(t, surveyDefs(map[string]bool{"enableTyping": false})...)
	require.NoError(t, err)

	assert.Equal(t, []string{"Assemble", "Classify", "Trim", "Type"}, g.Stages())
	assert.Equal(t, []string{"Typing"}, g.Inactive())
	assert.Equal(t, []string{"Combined", "TypingReport"}, g.Elided())

	for _, e := range g.Edges() {
		assert.NotContains(t, []string{"Typing", "TypingReport", "Combined"}, e.From)
		assert.NotContains(t, []string{"Typing", "TypingReport", "Combined"}, e.To)
	}
	_, ok := g.Channel("typing")
	assert.False(t, ok, "outputs of an inactive stage are never created")
	_, ok = g.Channel("combined")
	assert.False(t, ok)
}

func TestBuild_ActivationEvaluatedOnce(t *testing.T) {
	calls := 0
	counting := stage.ActivationFunc(func(*config.Params) (bool, error) {
		calls++
		return true, nil
	})

	_, err := build(t, def("Trim", []string{"reads"}, []string{"trimmed"}, counting))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	testCases := []struct {
		name  string
		defs  []*stage.Definition
		check func(t *testing.T, err error)
	}{
		{
			name: "duplicate producer",
			defs: []*stage.Definition{
				def("A", []string{"reads"}, []string{"out"}, nil),
				def("B", []string{"reads"}, []string{"out"}, nil),
			},
			check: func(t *testing.T, err error) {
				var dupErr *DuplicateProducerError
				require.ErrorAs(t, err, &dupErr)
				assert.Equal(t, "out", dupErr.Channel)
				assert.Equal(t, []string{"A", "B"}, dupErr.Producers)
			},
		},
		{
			name: "stage output collides with the source",
			defs: []*stage.Definition{
				def("A", []string{"reads"}, []string{"reads"}, nil),
			},
			check: func(t *testing.T, err error) {
				var dupErr *DuplicateProducerError
				require.ErrorAs(t, err, &dupErr)
				assert.Equal(t, []string{SourceProducer, "A"}, dupErr.Producers)
			},
		},
		{
			name: "unresolved channel",
			defs: []*stage.Definition{
				def("A", []string{"reads"}, []string{"a"}, nil),
				def("B", []string{"missing"}, nil, nil),
			},
			check: func(t *testing.T, err error) {
				var unresolved *UnresolvedChannelError
				require.ErrorAs(t, err, &unresolved)
				assert.Equal(t, "B", unresolved.Stage)
				assert.Equal(t, "missing", unresolved.Channel)
			},
		},
		{
			name: "cycle",
			defs: []*stage.Definition{
				def("A", []string{"reads", "c"}, []string{"a"}, nil),
				def("B", []string{"a"}, []string{"b"}, nil),
				def("C", []string{"b"}, []string{"c"}, nil),
			},
			check: func(t *testing.T, err error) {
				var cyclic *CyclicGraphError
				require.ErrorAs(t, err, &cyclic)
				assert.Equal(t, []string{"A", "B", "C", "A"}, cyclic.Path)
			},
		},
		{
			name: "stage consuming its own output",
			defs: []*stage.Definition{
				def("A", []string{"reads", "a"}, []string{"a"}, nil),
			},
			check: func(t *testing.T, err error) {
				var cyclic *CyclicGraphError
				require.ErrorAs(t, err, &cyclic)
				assert.Equal(t, []string{"A", "A"}, cyclic.Path)
			},
		},
		{
			name: "duplicate stage name",
			defs: []*stage.Definition{
				def("A", []string{"reads"}, nil, nil),
				def("A", []string{"reads"}, nil, nil),
			},
		},
		{
			name: "stage without inputs",
			defs: []*stage.Definition{def("A", nil, []string{"a"}, nil)},
		},
		{
			name: "activation error",
			defs: []*stage.Definition{def("A", []string{"reads"}, nil, stage.Flag("enableTyping"))},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := build(t, tc.defs...)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, config.ErrConfiguration), "error %v should be a configuration error", err)
			if tc.check != nil {
				tc.check(t, err)
			}
		})
	}
}

func TestBuild_ConsumerOfInactiveProducerIsNotAnError(t *testing.T) {
	g, err := build(t,
		def("Trim", []string{"reads"}, []string{"trimmed"}, nil),
		def("Mash", []string{"trimmed"}, []string{"mash"}, stage.Never),
		def("MashReport", []string{"mash"}, nil, nil),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Trim"}, g.Stages())
	assert.Equal(t, []string{"MashReport"}, g.Elided())
}

func TestBuild_CycleThroughInactiveStageIsIgnored(t *testing.T) {
	g, err := build(t,
		def("A", []string{"reads", "b"}, []string{"a"}, nil),
		def("B", []string{"a"}, []string{"b"}, stage.Never),
	)
	require.NoError(t, err)
	assert.Empty(t, g.Stages(), "A is fed by the inactive B and can never fire")
	assert.Equal(t, []string{"A"}, g.Elided())
}

func TestBuild_LeafOutputsAreDeadEnds(t *testing.T) {
	g, err := build(t, def("Trim", []string{"reads"}, []string{"trimmed"}, nil))
	require.NoError(t, err)

	ch, ok := g.Channel("trimmed")
	require.True(t, ok)
	assert.Equal(t, "Trim", ch.Producer())
	assert.Empty(t, ch.Subscriptions())
}

func TestBuild_GraphIsFrozen(t *testing.T) {
	g, err := build(t, def("Trim", []string{"reads"}, []string{"trimmed"}, nil))
	require.NoError(t, err)

	assert.ErrorIs(t, g.dag.AddNode("late"), dag.ErrFrozen)
	_, err = g.channels.Declare("late", "x")
	assert.ErrorIs(t, err, channel.ErrRegistryFrozen)
}
