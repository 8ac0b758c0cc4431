package workflow

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/fsutil"
	"github.com/esteinig/pathfinder/internal/stage"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// DefaultSource is the root channel name used when no file sets `source`.
const DefaultSource = "reads"

// DefaultWorkflowName is the file name reported for the embedded workflow.
const DefaultWorkflowName = "survey.hcl"

//go:embed survey.hcl
var defaultWorkflow []byte

// Workflow is the decoded result of one or more workflow files.
type Workflow struct {
	Source string
	Params config.Params
	// Labels maps a resource label to its concurrency budget.
	Labels map[string]int
	Stages []*stage.Definition
	Files  []string
}

// Loader reads workflow files. It is stateless apart from the optional
// YAML params file applied on top of every load.
type Loader struct {
	paramsFile string
}

// NewLoader creates a loader. An empty paramsFile disables the YAML override.
func NewLoader(paramsFile string) *Loader {
	return &Loader{paramsFile: paramsFile}
}

// Load parses every .hcl file found under paths. With no paths, the
// embedded survey workflow is loaded instead.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Workflow loader started.", "path_count", len(paths), "params_file", l.paramsFile)

	parser := hclparse.NewParser()
	var files []*hcl.File
	var names []string

	if len(paths) == 0 {
		f, diags := parser.ParseHCL(defaultWorkflow, DefaultWorkflowName)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: failed to parse embedded workflow: %w", config.ErrConfiguration, diags)
		}
		files = append(files, f)
		names = append(names, DefaultWorkflowName)
		logger.Debug("No workflow path given, using the embedded survey workflow.")
	} else {
		found, err := fsutil.FindFilesByExtension(".hcl", paths...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
		}
		if len(found) == 0 {
			return nil, config.Errorf("no .hcl files found in %v", paths)
		}
		for _, name := range found {
			f, diags := parser.ParseHCLFile(name)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%w: failed to parse HCL file %s: %w", config.ErrConfiguration, name, diags)
			}
			files = append(files, f)
			names = append(names, name)
		}
		logger.Debug("Discovered HCL files.", "count", len(found))
	}

	wf, err := l.decode(ctx, files, names)
	if err != nil {
		return nil, err
	}
	logger.Info("Workflow loaded.", "files", len(wf.Files), "stages", len(wf.Stages), "labels", len(wf.Labels), "source", wf.Source)
	return wf, nil
}

func (l *Loader) decode(ctx context.Context, files []*hcl.File, names []string) (*Workflow, error) {
	wf := &Workflow{
		Params: config.DefaultParams(),
		Labels: make(map[string]int),
		Files:  names,
	}

	var paramsBody hcl.Body
	var headers []*stageHeader
	for i, f := range files {
		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("%w: failed to decode HCL file %s: %w", config.ErrConfiguration, names[i], diags)
		}

		if root.Source != nil {
			if wf.Source != "" && wf.Source != *root.Source {
				return nil, config.Errorf("conflicting source channels %q and %q", wf.Source, *root.Source)
			}
			wf.Source = *root.Source
		}
		if root.Params != nil {
			if paramsBody != nil {
				return nil, config.Errorf("params block declared more than once (again in %s)", names[i])
			}
			paramsBody = root.Params.Body
		}
		for _, lb := range root.Labels {
			if _, dup := wf.Labels[lb.Name]; dup {
				return nil, config.Errorf("label %q is declared more than once", lb.Name)
			}
			if lb.Concurrency < 1 {
				return nil, config.Errorf("label %q: concurrency must be at least 1, got %d", lb.Name, lb.Concurrency)
			}
			wf.Labels[lb.Name] = lb.Concurrency
		}
		headers = append(headers, root.Stages...)
	}
	if wf.Source == "" {
		wf.Source = DefaultSource
	}

	if paramsBody != nil {
		if diags := gohcl.DecodeBody(paramsBody, nil, &wf.Params); diags.HasErrors() {
			return nil, fmt.Errorf("%w: failed to decode params block: %w", config.ErrConfiguration, diags)
		}
	}
	if l.paramsFile != "" {
		if err := applyParamsFile(l.paramsFile, &wf.Params); err != nil {
			return nil, err
		}
	}
	if err := wf.Params.Validate(); err != nil {
		return nil, err
	}

	paramsVal, err := wf.Params.Value()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"params": paramsVal}}

	for _, h := range headers {
		def, err := translateStage(ctx, h, evalCtx)
		if err != nil {
			return nil, err
		}
		wf.Stages = append(wf.Stages, def)
	}
	return wf, nil
}

// applyParamsFile overrides params with the keys present in a YAML file.
// Unknown keys are rejected.
func applyParamsFile(path string, params *config.Params) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read params file: %w", config.ErrConfiguration, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(params); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to decode params file %s: %w", config.ErrConfiguration, path, err)
	}
	return nil
}
