package workflow

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level construct of one workflow file. Stage
// bodies are kept raw until the parameters, and with them the evaluation
// context, are known.
type fileRoot struct {
	Source *string        `hcl:"source,optional"`
	Params *paramsBlock   `hcl:"params,block"`
	Labels []*labelBlock  `hcl:"label,block"`
	Stages []*stageHeader `hcl:"stage,block"`
}

type paramsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type labelBlock struct {
	Name        string `hcl:"name,label"`
	Concurrency int    `hcl:"concurrency"`
}

type stageHeader struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// stageBlock is the body of a stage, decoded with the params context.
type stageBlock struct {
	Label      string         `hcl:"label,optional"`
	Enabled    hcl.Expression `hcl:"enabled,optional"`
	Each       hcl.Expression `hcl:"each,optional"`
	MaxRetries int            `hcl:"max_retries,optional"`
	Publish    *bool          `hcl:"publish,optional"`
	Env        hcl.Expression `hcl:"env,optional"`
	Inputs     []*inputBlock  `hcl:"input,block"`
	Outputs    []*outputBlock `hcl:"output,block"`
}

type inputBlock struct {
	Channel string       `hcl:"channel,label"`
	Filter  *filterBlock `hcl:"filter,block"`
}

type filterBlock struct {
	MinSize  *int64 `hcl:"min_size,optional"`
	MinFiles *int   `hcl:"min_files,optional"`
}

type outputBlock struct {
	Channel string `hcl:"channel,label"`
	Pattern string `hcl:"pattern,optional"`
}
