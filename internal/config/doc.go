// Package config defines the immutable, process-wide parameter set of a
// pipeline run and the configuration error kind shared by every component
// that validates configuration before scheduling starts.
//
// Params is built once by the workflow loader and is only ever read
// afterwards. Components that evaluate expressions against it (stage
// activation, each-lists, environment passthrough) use its cty projection,
// returned by Params.Value.
package config
