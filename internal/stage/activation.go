package stage

import "github.com/esteinig/pathfinder/internal/config"

// Activation is a build-time predicate over the run's parameters.
type Activation interface {
	Active(params *config.Params) (bool, error)
}

// ActivationFunc adapts a function to the Activation interface.
type ActivationFunc func(params *config.Params) (bool, error)

// Active implements Activation.
func (f ActivationFunc) Active(params *config.Params) (bool, error) {
	return f(params)
}

// Always activates the stage unconditionally.
var Always Activation = ActivationFunc(func(*config.Params) (bool, error) { return true, nil })

// Never elides the stage unconditionally.
var Never Activation = ActivationFunc(func(*config.Params) (bool, error) { return false, nil })

// Flag activates the stage when the named boolean parameter is true.
func Flag(name string) Activation {
	return ActivationFunc(func(params *config.Params) (bool, error) {
		return params.Bool(name)
	})
}
