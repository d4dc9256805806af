package tetquery

import (
	"fmt"

	"github.com/akmonengine/tetquery/mesh"
	"gopkg.in/gcfg.v1"
)

// Config holds the settings of New that can be read from a file:
//
//	[Query]
//	Backend = software
//	Workers = 8
//	non-manifold-policy = reject
//	volume-tolerance = 1e-12
type Config struct {
	// Optional, registered backend name
	Backend string
	// Optional, 0 keeps the backend default
	Workers int

	NonManifoldPolicy string  `gcfg:"non-manifold-policy"`
	VolumeTolerance   float64 `gcfg:"volume-tolerance"`
}

type configFile struct {
	Query Config
}

// ReadConfig reads the [Query] section of an INI-style file.
func ReadConfig(fname string) (*Config, error) {
	file := configFile{}
	if err := gcfg.ReadFileInto(&file, fname); err != nil {
		return nil, fmt.Errorf("tetquery: %s: %w", fname, err)
	}
	if err := file.Query.CheckInit(); err != nil {
		return nil, err
	}
	return &file.Query, nil
}

// ReadConfigString is ReadConfig for an in-memory file.
func ReadConfigString(str string) (*Config, error) {
	file := configFile{}
	if err := gcfg.ReadStringInto(&file, str); err != nil {
		return nil, fmt.Errorf("tetquery: %w", err)
	}
	if err := file.Query.CheckInit(); err != nil {
		return nil, err
	}
	return &file.Query, nil
}

// CheckInit validates the configuration.
func (c *Config) CheckInit() error {
	if c.Workers < 0 {
		return fmt.Errorf("tetquery: Workers must be non-negative, but is %d", c.Workers)
	}
	if c.VolumeTolerance < 0 {
		return fmt.Errorf("tetquery: volume-tolerance must be non-negative, but is %g", c.VolumeTolerance)
	}
	if _, err := mesh.ParseNonManifoldPolicy(c.NonManifoldPolicy); err != nil {
		return fmt.Errorf("tetquery: %w", err)
	}
	return nil
}

// Options converts a checked configuration to options of New.
func (c *Config) Options() []Option {
	policy, _ := mesh.ParseNonManifoldPolicy(c.NonManifoldPolicy)

	opts := []Option{
		WithNonManifoldPolicy(policy),
		WithVolumeTolerance(c.VolumeTolerance),
	}
	if c.Backend != "" {
		opts = append(opts, WithBackend(c.Backend))
	}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	return opts
}
