package pool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the yaml config file. All fields are optional; command line
// flags take precedence over whatever the file sets.
type Config struct {
	Cluster  string `yaml:"cluster"`
	Endpoint string `yaml:"endpoint"`
	Keypair  string `yaml:"keypair"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
