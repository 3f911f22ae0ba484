package gen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects how a session generates: the protocol name used by the
// CLI, the generation target, and default call-time settings.
type Config struct {
	Protocol string `yaml:"protocol,omitempty"`
	Target   string `yaml:"target,omitempty"` //"client" or "server"

	RedactSensitive           bool `yaml:"redactSensitive,omitempty"`
	OutOfRangeFloatsAsStrings bool `yaml:"outOfRangeFloatsAsStrings,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Protocol: "json",
		Target:   "client",
	}
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := DefaultConfig()
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return conf, nil
}

// Settings converts the config defaults to call-time serializer
// settings.
func (c *Config) Settings() *SerializeSettings {
	return &SerializeSettings{RedactSensitive: c.RedactSensitive}
}

// SerdeSettings converts the config defaults to settings for the
// generic serializer walk.
func (c *Config) SerdeSettings() *SerdeSettings {
	return &SerdeSettings{
		RedactSensitive:           c.RedactSensitive,
		OutOfRangeFloatsAsStrings: c.OutOfRangeFloatsAsStrings,
	}
}
