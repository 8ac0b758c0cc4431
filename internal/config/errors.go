package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the kind shared by every fatal error detected before
// scheduling: unresolved channels, duplicate producers, cycles, an empty
// root input and invalid parameters.
var ErrConfiguration = errors.New("configuration error")

// Errorf formats an error that unwraps to ErrConfiguration.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
