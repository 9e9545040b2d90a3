package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/pipedbg/pkg/engine"
)

// EngineEnv overrides the engine URL of the workspace config.
const EngineEnv = "PIPEDBG_ENGINE"

// Workspace holds the .pipedbg/config.yaml workspace configuration.
type Workspace struct {
	Engine       string `yaml:"engine,omitempty"`
	Dialect      string `yaml:"dialect,omitempty"`
	PollInterval string `yaml:"pollInterval,omitempty"`
	Watch        bool   `yaml:"watch,omitempty"`
	LogLevel     string `yaml:"logLevel,omitempty"`
}

// DefaultWorkspace is the configuration used when no file exists.
func DefaultWorkspace() *Workspace {
	return &Workspace{Engine: engine.DefaultBaseURL, LogLevel: "info"}
}

// LoadWorkspace loads .pipedbg/config.yaml from dir over the defaults and
// applies the environment override.
func LoadWorkspace(dir string) (*Workspace, error) {
	cfg := DefaultWorkspace()
	path := filepath.Join(dir, ".pipedbg", "config.yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse workspace config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read workspace config: %w", err)
	}

	if v := os.Getenv(EngineEnv); v != "" {
		cfg.Engine = v
	}
	if cfg.PollInterval != "" {
		if _, err := time.ParseDuration(cfg.PollInterval); err != nil {
			return nil, fmt.Errorf("workspace config: pollInterval: %w", err)
		}
	}
	return cfg, nil
}

// Interval returns the callback poll interval, or zero for the default.
func (w *Workspace) Interval() time.Duration {
	d, _ := time.ParseDuration(w.PollInterval)
	return d
}
