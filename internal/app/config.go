package app

import "fmt"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// WorkflowPath is a .hcl file or a directory of them. Empty selects the
	// embedded survey workflow.
	WorkflowPath string
	ParamsFile   string
	// BinDir holds one executable per stage, named after the stage.
	BinDir string

	Workers            int
	DefaultConcurrency int

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.DefaultConcurrency < 1 {
		return nil, fmt.Errorf("default-concurrency must be at least 1, got %d", cfg.DefaultConcurrency)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
