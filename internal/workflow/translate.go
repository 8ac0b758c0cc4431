// This file translates decoded HCL stage blocks into stage definitions.

package workflow

import (
	"context"
	"fmt"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/stage"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// translateStage decodes one stage body and converts it into a definition.
func translateStage(ctx context.Context, h *stageHeader, evalCtx *hcl.EvalContext) (*stage.Definition, error) {
	ctx, logger := ctxlog.With(ctx, "stage", h.Name)
	logger.Debug("Translating HCL stage to definition.")

	var sb stageBlock
	if diags := gohcl.DecodeBody(h.Body, evalCtx, &sb); diags.HasErrors() {
		return nil, fmt.Errorf("%w: stage %q: %w", config.ErrConfiguration, h.Name, diags)
	}
	if sb.MaxRetries < 0 {
		return nil, config.Errorf("stage %q: max_retries must not be negative", h.Name)
	}

	def := &stage.Definition{
		Name:       h.Name,
		Label:      sb.Label,
		MaxRetries: uint64(sb.MaxRetries),
		Publish:    true,
	}
	if def.Label == "" {
		def.Label = h.Name
	}
	if sb.Publish != nil {
		def.Publish = *sb.Publish
	}

	if isExprDefined(ctx, sb.Enabled, "enabled") {
		def.When = &exprActivation{stage: h.Name, expr: sb.Enabled}
	}

	each, err := evalStringList(sb.Each, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: stage %q: each: %w", config.ErrConfiguration, h.Name, err)
	}
	def.Each = each

	env, err := evalStringMap(sb.Env, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: stage %q: env: %w", config.ErrConfiguration, h.Name, err)
	}
	def.Env = env

	for _, in := range sb.Inputs {
		def.Inputs = append(def.Inputs, stage.Input{Channel: in.Channel, Filter: translateFilter(in.Filter)})
	}
	for _, out := range sb.Outputs {
		def.Outputs = append(def.Outputs, stage.Output{Channel: out.Channel, Pattern: out.Pattern})
	}

	logger.Debug("Stage translated.", "label", def.Label, "inputs", def.InputNames(), "outputs", def.OutputNames(), "each", len(def.Each), "conditional", def.When != nil)
	return def, nil
}

// translateFilter turns a filter block into a predicate. A missing or empty
// block accepts everything.
func translateFilter(f *filterBlock) channel.Predicate {
	if f == nil {
		return nil
	}
	var all channel.All
	if f.MinFiles != nil {
		all = append(all, channel.MinFiles{N: *f.MinFiles})
	}
	if f.MinSize != nil {
		all = append(all, channel.MinFileSize{Bytes: *f.MinSize})
	}
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return all
	}
}

// isExprDefined reports whether an optional attribute was present in the
// source. gohcl fills omitted hcl.Expression fields with a zero-width
// placeholder, so the source range is the reliable signal.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// evalStringList evaluates an optional list-of-strings attribute. An omitted
// or null attribute yields nil; an empty list yields an empty, non-nil slice.
func evalStringList(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	val, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, err
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value must be known")
	}

	out := make([]string, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			return nil, fmt.Errorf("elements must not be null")
		}
		out = append(out, v.AsString())
	}
	return out, nil
}

// evalStringMap evaluates an optional map-of-strings attribute.
func evalStringMap(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	val, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, err
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value must be known")
	}

	out := make(map[string]string, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if v.IsNull() {
			return nil, fmt.Errorf("value of %q must not be null", k.AsString())
		}
		out[k.AsString()] = v.AsString()
	}
	return out, nil
}
