package config

const (
	DefaultParallelism    = 4
	DefaultTimeout        = "5m"
	DefaultScanDepth      = 3
	DefaultLanguage       = "en"
	DefaultHistoryPath    = "history.db"
	DefaultMaxOutputBytes = 64 * 1024
)

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		Parallelism: DefaultParallelism,
		Timeout:     DefaultTimeout,
		ScanDepth:   DefaultScanDepth,
		Language:    DefaultLanguage,
		History: HistoryConfig{
			Path: DefaultHistoryPath,
		},
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}
