package stage

import (
	"errors"
	"testing"

	"github.com/esteinig/pathfinder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	params := config.DefaultParams()
	params.Snippy = false

	testCases := []struct {
		name string
		when Activation
		want bool
	}{
		{name: "nil means always", when: nil, want: true},
		{name: "always", when: Always, want: true},
		{name: "never", when: Never, want: false},
		{name: "flag on", when: Flag("mash"), want: true},
		{name: "flag off", when: Flag("snippy"), want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := &Definition{Name: "x", When: tc.when}
			got, err := def.Resolve(&params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_UnknownFlag(t *testing.T) {
	params := config.DefaultParams()
	def := &Definition{Name: "typing", When: Flag("enableTyping")}

	_, err := def.Resolve(&params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.Contains(t, err.Error(), `stage "typing"`)
}

func TestNames(t *testing.T) {
	def := &Definition{
		Inputs:  []Input{{Channel: "reads"}, {Channel: "reference"}},
		Outputs: []Output{{Channel: "vcf", Pattern: "*.vcf"}},
	}
	assert.Equal(t, []string{"reads", "reference"}, def.InputNames())
	assert.Equal(t, []string{"vcf"}, def.OutputNames())
}
