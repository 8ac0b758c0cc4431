package workflow

import (
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// exprActivation is the activation of a stage with an `enabled` attribute.
// The expression sees the parameters the graph builder was created with.
type exprActivation struct {
	stage string
	expr  hcl.Expression
}

// Active implements stage.Activation.
func (a *exprActivation) Active(params *config.Params) (bool, error) {
	paramsVal, err := params.Value()
	if err != nil {
		return false, err
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"params": paramsVal}}

	val, diags := a.expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, config.Errorf("stage %q: enabled: %s", a.stage, diags.Error())
	}
	val, err = convert.Convert(val, cty.Bool)
	if err != nil {
		return false, config.Errorf("stage %q: enabled must be a bool: %s", a.stage, err)
	}
	if val.IsNull() || !val.IsKnown() {
		return false, config.Errorf("stage %q: enabled must be a known bool", a.stage)
	}
	return val.True(), nil
}
