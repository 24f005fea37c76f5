package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "GITBATCH_LANG",
		apply: func(c *Config, v string) {
			c.Language = v
		},
	},
	{
		envVar: "GITBATCH_TIMEOUT",
		apply: func(c *Config, v string) {
			c.Timeout = v
		},
	},
	{
		envVar: "GITBATCH_HISTORY_PATH",
		apply: func(c *Config, v string) {
			c.History.Path = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
