package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var validate = validator.New()

// Load returns the defaults merged with the YAML file at path. An empty path
// loads the defaults only. The result is validated either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Field: "file", Err: err}
		}

		var file Config
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &Error{Field: "file", Err: fmt.Errorf("parsing %s: %w", path, err)}
		}
		cfg.merge(&file)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, &Error{Field: "file", Err: fmt.Errorf("validation failed: %w", err)}
	}
	return cfg, nil
}

// merge overlays the non-zero values of file. Chains are merged per name;
// a partial chain entry keeps the default fields it does not set.
func (c *Config) merge(file *Config) {
	if file.Multicall3 != "" {
		c.Multicall3 = file.Multicall3
	}
	if file.BatchMode != "" {
		c.BatchMode = file.BatchMode
	}
	if file.RPCTimeout != 0 {
		c.RPCTimeout = file.RPCTimeout
	}
	if file.Directory.BaseURL != "" {
		c.Directory.BaseURL = strings.TrimRight(file.Directory.BaseURL, "/")
	}
	if file.Directory.Timeout != 0 {
		c.Directory.Timeout = file.Directory.Timeout
	}
	if file.Directory.Offline {
		c.Directory.Offline = true
	}

	for name, fc := range file.Chains {
		name = strings.ToLower(name)
		merged := c.Chains[name]
		if fc.ID != 0 {
			merged.ID = fc.ID
		}
		if fc.RPCURL != "" {
			merged.RPCURL = fc.RPCURL
		}
		if fc.Directory != "" {
			merged.Directory = fc.Directory
		}
		c.Chains[name] = merged
	}

	for name, feeds := range file.Feeds {
		name = strings.ToLower(name)
		c.Feeds[name] = append(c.Feeds[name], feeds...)
	}

	if file.Telemetry.OTLPEndpoint != "" || file.Telemetry.Console {
		c.Telemetry = file.Telemetry
	}
}
