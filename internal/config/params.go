package config

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Assemblers lists the assembler choices understood by the assembly stage.
var Assemblers = []string{"skesa", "spades", "shovill"}

// slidingWindowRegex matches the "<window>:<quality>" trimming parameter.
var slidingWindowRegex = regexp.MustCompile(`^\d+:\d+$`)

// Params is the process-wide parameter set. Each field carries the same name
// in HCL, YAML and in the `params` object visible to workflow expressions.
type Params struct {
	Fastq     string `hcl:"fastq,optional" cty:"fastq" yaml:"fastq"`
	Resources string `hcl:"resources,optional" cty:"resources" yaml:"resources"`
	Outdir    string `hcl:"outdir,optional" cty:"outdir" yaml:"outdir"`
	Workdir   string `hcl:"workdir,optional" cty:"workdir" yaml:"workdir"`

	// Read trimming.
	Leading       int    `hcl:"leading,optional" cty:"leading" yaml:"leading"`
	Trailing      int    `hcl:"trailing,optional" cty:"trailing" yaml:"trailing"`
	MinLen        int    `hcl:"min_len,optional" cty:"min_len" yaml:"min_len"`
	SlidingWindow string `hcl:"sliding_window,optional" cty:"sliding_window" yaml:"sliding_window"`
	Adapters      string `hcl:"adapters,optional" cty:"adapters" yaml:"adapters"`

	// Assembly.
	Assembler string `hcl:"assembler,optional" cty:"assembler" yaml:"assembler"`
	Depth     int    `hcl:"depth,optional" cty:"depth" yaml:"depth"`
	Reference string `hcl:"reference,optional" cty:"reference" yaml:"reference"`

	// Optional stages.
	Mash      bool `hcl:"mash,optional" cty:"mash" yaml:"mash"`
	Snippy    bool `hcl:"snippy,optional" cty:"snippy" yaml:"snippy"`
	Mykrobe   bool `hcl:"mykrobe,optional" cty:"mykrobe" yaml:"mykrobe"`
	Kleborate bool `hcl:"kleborate,optional" cty:"kleborate" yaml:"kleborate"`
	Sccion    bool `hcl:"sccion,optional" cty:"sccion" yaml:"sccion"`

	// AbricateDBs is the each-list of the typing fan-out stage.
	AbricateDBs []string `hcl:"abricate_dbs,optional" cty:"abricate_dbs" yaml:"abricate_dbs"`
}

// DefaultParams returns the parameter set used when nothing overrides it.
func DefaultParams() Params {
	return Params{
		Fastq:         "*_{1,2}.fastq.gz",
		Resources:     "resources",
		Outdir:        "results",
		Workdir:       "work",
		Leading:       5,
		Trailing:      5,
		MinLen:        36,
		SlidingWindow: "4:15",
		Adapters:      "all",
		Assembler:     "skesa",
		Depth:         100,
		Mash:          true,
		AbricateDBs:   []string{"resfinder", "vfdb", "plasmidfinder"},
	}
}

// Validate reports the first invalid parameter as an ErrConfiguration.
func (p *Params) Validate() error {
	if p.Fastq == "" {
		return Errorf("params.fastq must not be empty")
	}
	if !slices.Contains(Assemblers, p.Assembler) {
		return Errorf("params.assembler %q is not one of %v", p.Assembler, Assemblers)
	}
	if p.Leading < 0 || p.Trailing < 0 || p.MinLen < 0 {
		return Errorf("params.leading, params.trailing and params.min_len must not be negative")
	}
	if p.Depth <= 0 {
		return Errorf("params.depth must be positive, got %d", p.Depth)
	}
	if !slidingWindowRegex.MatchString(p.SlidingWindow) {
		return Errorf("params.sliding_window %q must have the form <window>:<quality>", p.SlidingWindow)
	}
	return nil
}

// Value projects the parameters into a cty object for expression evaluation.
func (p *Params) Value() (cty.Value, error) {
	cp := *p
	if cp.AbricateDBs == nil {
		cp.AbricateDBs = []string{}
	}
	ty, err := gocty.ImpliedType(cp)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to derive params type: %w", err)
	}
	val, err := gocty.ToCtyValue(cp, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to convert params: %w", err)
	}
	return val, nil
}

// Bool looks up a boolean parameter by its HCL name.
func (p *Params) Bool(name string) (bool, error) {
	val, err := p.Value()
	if err != nil {
		return false, err
	}
	if !val.Type().HasAttribute(name) {
		return false, Errorf("unknown parameter %q", name)
	}
	attr := val.GetAttr(name)
	if attr.Type() != cty.Bool {
		return false, Errorf("parameter %q is a %s, not a bool", name, attr.Type().FriendlyName())
	}
	return attr.True(), nil
}
